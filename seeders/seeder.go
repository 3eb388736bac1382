package seeders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"workitem-system/internal/entities"
	"workitem-system/internal/repositories"
	"workitem-system/pkg/constants"
)

type seedUser struct {
	Name     string
	Email    string
	Role     string
	Password string
}

var defaultUsers = []seedUser{
	{Name: "Admin Manager", Email: "manager@example.com", Role: constants.RoleManager, Password: "manager123"},
	{Name: "Shift Supervisor", Email: "supervisor@example.com", Role: constants.RoleSupervisor, Password: "supervisor123"},
	{Name: "Implementation Analyst", Email: "impl.analyst@example.com", Role: constants.RoleImplementationAnalyst, Password: "analyst123"},
	{Name: "Movement Analyst", Email: "mov.analyst@example.com", Role: constants.RoleMovementAnalyst, Password: "analyst123"},
	{Name: "Sales Consultant", Email: "consultant@example.com", Role: constants.RoleConsultant, Password: "consultant123"},
}

// SeedUsers inserts the default accounts; existing emails are left alone.
func SeedUsers(ctx context.Context, repo repositories.UserRepositoryInterface) error {
	for _, su := range defaultUsers {
		hash, err := bcrypt.GenerateFromPassword([]byte(su.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", su.Email, err)
		}
		user := &entities.User{
			ID:           uuid.New(),
			Name:         su.Name,
			Email:        su.Email,
			Role:         su.Role,
			PasswordHash: string(hash),
			CreatedAt:    time.Now(),
		}
		if err := repo.Create(ctx, user); err != nil {
			return fmt.Errorf("seed user %s: %w", su.Email, err)
		}
	}
	return nil
}
