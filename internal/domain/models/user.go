package models

import "time"

// Role enumerates the staff profiles of the bank.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleMedico      Role = "medico"
	RoleEnfermeria  Role = "enfermeria"
	RoleLaboratorio Role = "laboratorio"
)

// User is a staff account. Authentication lives outside this service.
type User struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Email     string    `bson:"email" json:"email"`
	Role      Role      `bson:"role" json:"role"`
	Active    bool      `bson:"active" json:"active"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
