package domain

// Role определяет права вызывающего в системе.
type Role string

const (
	// RoleUser: покупатель или участник мероприятий.
	RoleUser Role = "user"
	// RoleBusiness получает владелец бизнеса, который продаёт товары и организует мероприятия.
	RoleBusiness Role = "business"
	// RolePartner получает курьер.
	RolePartner Role = "partner"
	RoleAdmin   Role = "admin"
	// RoleSystem используют сага и планировщик.
	RoleSystem Role = "system"
)

// Valid проверяет, что роль поддерживается.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleBusiness, RolePartner, RoleAdmin, RoleSystem:
		return true
	default:
		return false
	}
}

// Actor описывает того, кто выполняет операцию.
type Actor struct {
	UserID     string
	Role       Role
	BusinessID string
}

// SystemActor используется сагой и фоновыми задачами.
func SystemActor() Actor {
	return Actor{UserID: "system", Role: RoleSystem}
}

// IsAdmin сообщает, обладает ли актор правами администратора.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// OwnsBusiness проверяет, что актор действует от имени указанного бизнеса.
// Бизнес-аккаунт без явного business_id считается бизнесом с идентификатором пользователя.
func (a Actor) OwnsBusiness(businessID string) bool {
	if businessID == "" {
		return false
	}
	if a.Role != RoleBusiness {
		return false
	}
	return a.effectiveBusinessID() == businessID
}

// EffectiveBusinessID возвращает идентификатор бизнеса актора.
func (a Actor) EffectiveBusinessID() string {
	return a.effectiveBusinessID()
}

func (a Actor) effectiveBusinessID() string {
	if a.BusinessID != "" {
		return a.BusinessID
	}
	return a.UserID
}
