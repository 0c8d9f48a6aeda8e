package domain

import "time"

// orderTransitions задаёт допустимые переходы: from -> to -> роли.
// Администратор может выполнить любой переход из таблицы.
var orderTransitions = map[OrderStatus]map[OrderStatus][]Role{
	OrderStatusPending: {
		OrderStatusReserved:  {RoleSystem},
		OrderStatusPaid:      {RoleSystem},
		OrderStatusConfirmed: {RoleSystem},
		OrderStatusCanceled:  {RoleUser, RoleBusiness, RoleSystem},
		OrderStatusRejected:  {RoleBusiness},
	},
	OrderStatusReserved: {
		OrderStatusPaid:      {RoleSystem},
		OrderStatusConfirmed: {RoleSystem},
		OrderStatusCanceled:  {RoleUser, RoleBusiness, RoleSystem},
	},
	OrderStatusPaid: {
		OrderStatusConfirmed: {RoleSystem},
		OrderStatusCanceled:  {RoleUser, RoleBusiness, RoleSystem},
		OrderStatusRefunded:  {RoleBusiness, RoleSystem},
	},
	OrderStatusConfirmed: {
		OrderStatusPreparing: {RoleBusiness},
		OrderStatusCanceled:  {RoleUser, RoleBusiness, RoleSystem},
		OrderStatusRejected:  {RoleBusiness},
		OrderStatusCompleted: {RoleSystem, RoleBusiness},
		OrderStatusRefunded:  {RoleBusiness, RoleSystem},
	},
	OrderStatusPreparing: {
		OrderStatusReady: {RoleBusiness},
	},
	OrderStatusReady: {
		OrderStatusOutForDelivery: {RoleBusiness, RolePartner},
	},
	OrderStatusOutForDelivery: {
		OrderStatusDelivered: {RolePartner},
	},
	OrderStatusDelivered: {
		OrderStatusCompleted: {RoleSystem, RoleBusiness},
		OrderStatusRefunded:  {RoleBusiness, RoleSystem},
	},
	OrderStatusCompleted: {
		OrderStatusRefunded: {RoleBusiness, RoleSystem},
	},
}

// CanTransition проверяет переход по таблице для роли.
// Возвращает ErrInvalidTransition, если пары нет в таблице,
// и ErrForbiddenTransition, если роль не входит в список допустимых.
func CanTransition(from, to OrderStatus, role Role) error {
	targets, ok := orderTransitions[from]
	if !ok {
		return ErrInvalidTransition
	}
	roles, ok := targets[to]
	if !ok {
		return ErrInvalidTransition
	}
	if role == RoleAdmin {
		return nil
	}
	for _, allowed := range roles {
		if allowed == role {
			return nil
		}
	}
	return ErrForbiddenTransition
}

// AllowedTransitions возвращает статусы, в которые роль может перевести заказ.
func AllowedTransitions(from OrderStatus, role Role) []OrderStatus {
	result := make([]OrderStatus, 0)
	for _, to := range orderedStatuses {
		if CanTransition(from, to, role) == nil {
			result = append(result, to)
		}
	}
	return result
}

var orderedStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusReserved,
	OrderStatusPaid,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusRejected,
	OrderStatusCanceled,
	OrderStatusRefunded,
}

// Transition переводит заказ в новый статус, если это разрешено таблицей.
// Переход в текущий статус ничего не меняет.
func (o *Order) Transition(to OrderStatus, role Role, now time.Time) (bool, error) {
	if o.Status == to {
		return false, nil
	}
	if err := CanTransition(o.Status, to, role); err != nil {
		return false, err
	}
	// Доставка товарных заказов существует только для kind=goods.
	if o.Kind == OrderKindTicket {
		switch to {
		case OrderStatusPreparing, OrderStatusReady, OrderStatusOutForDelivery, OrderStatusDelivered:
			return false, ErrInvalidTransition
		}
	}
	if o.Kind == OrderKindGoods && o.Status == OrderStatusConfirmed && to == OrderStatusCompleted {
		return false, ErrInvalidTransition
	}

	o.Status = to
	o.UpdatedAt = now
	if to == OrderStatusDelivered {
		o.Delivery.DeliveredAt = now
	}
	return true, nil
}
