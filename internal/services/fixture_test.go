package services_test

import (
	"context"
	"testing"

	"github.com/itparc/inventory/internal/auth"
	"github.com/itparc/inventory/internal/logging"
	"github.com/itparc/inventory/internal/services"
	"github.com/itparc/inventory/internal/services/servicestest"
	"github.com/itparc/inventory/types"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	db          *servicestest.Store
	creds       *auth.Credentials
	events      *servicestest.Recorder
	blobs       *servicestest.Blobs
	auth        *services.AuthService
	users       *services.UserService
	equipment   *services.EquipmentService
	maintenance *services.MaintenanceService
}

func newFixture(t *testing.T, opts ...auth.Option) *fixture {
	t.Helper()

	opts = append([]auth.Option{auth.WithHashCost(bcrypt.MinCost)}, opts...)
	creds, err := auth.New("test-signing-key", opts...)
	require.NoError(t, err)

	db := servicestest.New()
	events := &servicestest.Recorder{}
	blobs := servicestest.NewBlobs()

	users := services.NewUserService(db.Users(), creds, events)
	return &fixture{
		db:        db,
		creds:     creds,
		events:    events,
		blobs:     blobs,
		auth:      services.NewAuthService(users, db.Users(), creds),
		users:     users,
		equipment: services.NewEquipmentService(db.Equipment(), db.Users(), events),
		maintenance: services.NewMaintenanceService(
			db.Maintenance(), db.Equipment(), db.Attachments(), blobs, events, logging.Discard(),
		),
	}
}

func (f *fixture) user(t *testing.T, username string, role types.Role) types.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), 0, services.NewUser{
		Username: username,
		Email:    username + "@example.com",
		Password: "password-" + username,
		Role:     role,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) equipmentFor(t *testing.T, admin types.User, serial, assignee string) types.Equipment {
	t.Helper()
	e, err := f.equipment.Create(context.Background(), admin, services.EquipmentInput{
		Name:         "Laptop " + serial,
		Type:         types.EquipmentComputer,
		SerialNumber: serial,
		AssignedTo:   assignee,
	})
	require.NoError(t, err)
	return e
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }
