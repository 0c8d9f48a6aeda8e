package domain

import "math"

// EarthRadiusKm задаёт средний радиус Земли (IUGG).
const EarthRadiusKm = 6371.0088

// GeoPoint задаёт координаты в градусах WGS84.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate проверяет диапазоны широты и долготы.
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return ErrLocationInvalid
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return ErrLocationInvalid
	}
	return nil
}

// IsZero сообщает, что координаты не заданы.
func (p GeoPoint) IsZero() bool {
	return p.Lat == 0 && p.Lng == 0
}

// DistanceKm считает расстояние по большому кругу (формула гаверсинуса).
func DistanceKm(a, b GeoPoint) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := lat2 - lat1
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// BoundingBox служит грубой предфильтрацией по координатам.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// BoundingBoxAround строит прямоугольник, гарантированно содержащий круг радиуса radiusKm.
// Полуширина по долготе asin(sin(r)/cos(lat)) точна для касательных меридианов;
// если круг накрывает полюс, берётся весь диапазон долгот.
func BoundingBoxAround(center GeoPoint, radiusKm float64) BoundingBox {
	if radiusKm < 0 {
		radiusKm = 0
	}
	angular := radiusKm / EarthRadiusKm
	dLat := angular * 180 / math.Pi

	box := BoundingBox{
		MinLat: math.Max(center.Lat-dLat, -90),
		MaxLat: math.Min(center.Lat+dLat, 90),
		MinLng: -180,
		MaxLng: 180,
	}
	if box.MinLat <= -90 || box.MaxLat >= 90 {
		return box
	}

	ratio := math.Sin(angular) / math.Cos(toRadians(center.Lat))
	if ratio >= 1 {
		return box
	}
	dLng := math.Asin(ratio) * 180 / math.Pi
	box.MinLng = center.Lng - dLng
	box.MaxLng = center.Lng + dLng
	return box
}

// LngRange задаёт отрезок долгот внутри [-180, 180].
type LngRange struct {
	Min float64
	Max float64
}

// LngRanges раскладывает долготы прямоугольника на отрезки без перехода через 180-й меридиан.
// Прямоугольник, пересекающий меридиан, даёт два отрезка.
func (b BoundingBox) LngRanges() []LngRange {
	switch {
	case b.MinLng < -180:
		return []LngRange{{Min: b.MinLng + 360, Max: 180}, {Min: -180, Max: b.MaxLng}}
	case b.MaxLng > 180:
		return []LngRange{{Min: b.MinLng, Max: 180}, {Min: -180, Max: b.MaxLng - 360}}
	default:
		return []LngRange{{Min: b.MinLng, Max: b.MaxLng}}
	}
}

// Contains проверяет попадание точки в прямоугольник с учётом перехода через 180-й меридиан.
func (b BoundingBox) Contains(p GeoPoint) bool {
	if p.Lat < b.MinLat || p.Lat > b.MaxLat {
		return false
	}
	for _, r := range b.LngRanges() {
		if p.Lng >= r.Min && p.Lng <= r.Max {
			return true
		}
	}
	return false
}

// WithinRadius точно проверяет расстояние.
func WithinRadius(center, p GeoPoint, radiusKm float64) bool {
	return DistanceKm(center, p) <= radiusKm
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
