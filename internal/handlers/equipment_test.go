package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/itparc/inventory/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEquipmentEndpoints(t *testing.T) {
	a := newAPI(t)
	admin := a.session(t, "root", types.RoleAdmin)
	owner := a.session(t, "alice", types.RoleUser)
	other := a.session(t, "bob", types.RoleUser)

	body := map[string]any{
		"name":         "ThinkPad",
		"type":         "computer",
		"serialNumber": "SN-1",
		"purchaseDate": "2024-02-01",
		"assignedTo":   "alice",
	}

	rec := a.do(t, http.MethodPost, "/equipments", owner.Token, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodPost, "/equipments", admin.Token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	assert.Equal(t, "alice", created["assignedToUsername"])
	assert.EqualValues(t, owner.ID, created["assignedTo"])
	id := int(created["id"].(float64))
	path := fmt.Sprintf("/equipments/%d", id)

	rec = a.do(t, http.MethodPost, "/equipments", admin.Token, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "serial number must be unique", message(t, rec))

	rec = a.do(t, http.MethodGet, "/equipments", owner.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = a.do(t, http.MethodGet, "/equipments", other.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	rec = a.do(t, http.MethodGet, path, other.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "access denied to this equipment", message(t, rec))

	rec = a.do(t, http.MethodPut, path, admin.Token, map[string]any{"status": "faulty", "assignedTo": "ghost"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "assigned user not found", message(t, rec))

	rec = a.do(t, http.MethodPut, path, admin.Token, map[string]any{"status": "faulty"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", decode[map[string]any](t, rec)["assignedToUsername"])

	rec = a.do(t, http.MethodPut, path, admin.Token, map[string]any{"assignedTo": nil})
	require.Equal(t, http.StatusOK, rec.Code)
	unassigned := decode[map[string]any](t, rec)
	assert.Nil(t, unassigned["assignedTo"])
	assert.Equal(t, "faulty", unassigned["status"])

	rec = a.do(t, http.MethodGet, path, owner.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodPut, path, owner.Token, map[string]any{"name": "mine"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodDelete, path, admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "equipment deleted successfully", message(t, rec))

	rec = a.do(t, http.MethodGet, path, admin.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "equipment not found", message(t, rec))
}
