package core

import "shipyard/pkg/domain"

type (
	Category           = domain.Category
	Template           = domain.Template
	RoomInstance       = domain.RoomInstance
	Grid               = domain.Grid
	Coordinate         = domain.Coordinate
	Session            = domain.Session
	Severity           = domain.Severity
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	Rule               = domain.Rule
	RuleView           = domain.RuleView
	RulesEngine        = domain.RulesEngine
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
	PersistentStore    = domain.PersistentStore
)

const (
	CategoryEngine      = domain.CategoryEngine
	CategoryShield      = domain.CategoryShield
	CategoryCockpit     = domain.CategoryCockpit
	CategoryLifeSupport = domain.CategoryLifeSupport
	CategoryEngineering = domain.CategoryEngineering
	CategorySensors     = domain.CategorySensors
	CategoryWeapon      = domain.CategoryWeapon
	CategoryPower       = domain.CategoryPower
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)
