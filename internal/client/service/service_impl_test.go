package service_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	auditdomain "github.com/smallbiznis/factura/internal/audit/domain"
	clientdomain "github.com/smallbiznis/factura/internal/client/domain"
	clientrepo "github.com/smallbiznis/factura/internal/client/repository"
	clientservice "github.com/smallbiznis/factura/internal/client/service"
	invoicedomain "github.com/smallbiznis/factura/internal/invoice/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type noopAudit struct{}

func (noopAudit) Record(ctx context.Context, entry auditdomain.Entry) error {
	return nil
}

func (noopAudit) List(ctx context.Context, req auditdomain.ListActivityRequest) (auditdomain.ListActivityResponse, error) {
	return auditdomain.ListActivityResponse{}, nil
}

func setupTest(t *testing.T) (clientdomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_client_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&clientdomain.Client{}, &invoicedomain.Invoice{}))

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	svc := clientservice.New(clientservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  clientrepo.Provide(),
		Audit: noopAudit{},
	})
	return svc, db, node
}

func createRequest(name string) clientdomain.CreateClientRequest {
	local := strings.ToLower(strings.ReplaceAll(name, " ", "."))
	return clientdomain.CreateClientRequest{
		Name:    name,
		Email:   local + "@example.test",
		Street:  "1 Main St",
		City:    "Springfield",
		State:   "IL",
		Zip:     "62701",
		Country: "US",
	}
}

func TestCreateClientTrimsAndValidates(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupTest(t)

	req := createRequest("Acme Co")
	req.Name = "  Acme Co  "
	req.Email = " billing@acme.test "
	req.Company = "Acme"
	created, err := svc.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Acme Co", created.Name)
	assert.Equal(t, "billing@acme.test", created.Email)
	assert.Equal(t, "1 Main St", created.Street)
	assert.Equal(t, "US", created.Country)

	blank := createRequest("Blank")
	blank.Name = "   "
	_, err = svc.Create(ctx, blank)
	assert.ErrorIs(t, err, clientdomain.ErrInvalidName)

	malformed := createRequest("Acme")
	malformed.Email = "not-an-email"
	_, err = svc.Create(ctx, malformed)
	assert.ErrorIs(t, err, clientdomain.ErrInvalidEmail)
}

func TestCreateClientRequiresEmailAndAddress(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupTest(t)

	noEmail := createRequest("No Contact Ltd")
	noEmail.Email = ""
	_, err := svc.Create(ctx, noEmail)
	assert.ErrorIs(t, err, clientdomain.ErrInvalidEmail)

	fields := []struct {
		name  string
		strip func(*clientdomain.CreateClientRequest)
	}{
		{"street", func(r *clientdomain.CreateClientRequest) { r.Street = "" }},
		{"city", func(r *clientdomain.CreateClientRequest) { r.City = "  " }},
		{"state", func(r *clientdomain.CreateClientRequest) { r.State = "" }},
		{"zip", func(r *clientdomain.CreateClientRequest) { r.Zip = "" }},
		{"country", func(r *clientdomain.CreateClientRequest) { r.Country = "" }},
	}
	for _, field := range fields {
		req := createRequest("No Address Ltd")
		field.strip(&req)
		_, err := svc.Create(ctx, req)
		assert.ErrorIs(t, err, clientdomain.ErrInvalidAddress, "missing %s", field.name)
	}
}

func TestUpdateClientPartialFields(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupTest(t)

	req := createRequest("Acme Co")
	req.Email = "billing@acme.test"
	req.Notes = "prefers email"
	created, err := svc.Create(ctx, req)
	require.NoError(t, err)

	phone := "555-0100"
	updated, err := svc.Update(ctx, clientdomain.UpdateClientRequest{
		ID:    created.ID.String(),
		Phone: &phone,
	})
	require.NoError(t, err)
	assert.Equal(t, "555-0100", updated.Phone)
	// Untouched fields survive a partial update.
	assert.Equal(t, "billing@acme.test", updated.Email)
	assert.Equal(t, "prefers email", updated.Notes)
	assert.Equal(t, "Springfield", updated.City)

	city := "Shelbyville"
	updated, err = svc.Update(ctx, clientdomain.UpdateClientRequest{
		ID:   created.ID.String(),
		City: &city,
	})
	require.NoError(t, err)
	assert.Equal(t, "Shelbyville", updated.City)
	assert.Equal(t, "1 Main St", updated.Street)

	empty := ""
	_, err = svc.Update(ctx, clientdomain.UpdateClientRequest{
		ID:   created.ID.String(),
		Name: &empty,
	})
	assert.ErrorIs(t, err, clientdomain.ErrInvalidName)

	_, err = svc.Update(ctx, clientdomain.UpdateClientRequest{
		ID:    created.ID.String(),
		Email: &empty,
	})
	assert.ErrorIs(t, err, clientdomain.ErrInvalidEmail)

	_, err = svc.Update(ctx, clientdomain.UpdateClientRequest{
		ID:      created.ID.String(),
		Country: &empty,
	})
	assert.ErrorIs(t, err, clientdomain.ErrInvalidAddress)
}

func TestGetClientNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _, node := setupTest(t)

	_, err := svc.GetByID(ctx, clientdomain.GetClientRequest{ID: node.Generate().String()})
	assert.ErrorIs(t, err, clientdomain.ErrNotFound)

	_, err = svc.GetByID(ctx, clientdomain.GetClientRequest{ID: "garbage"})
	assert.ErrorIs(t, err, clientdomain.ErrInvalidID)
}

func TestListClientsSearch(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupTest(t)

	for _, name := range []string{"Acme Co", "Globex", "Initech"} {
		_, err := svc.Create(ctx, createRequest(name))
		require.NoError(t, err)
	}

	resp, err := svc.List(ctx, clientdomain.ListClientRequest{Search: "glob"})
	require.NoError(t, err)
	require.Len(t, resp.Clients, 1)
	assert.Equal(t, "Globex", resp.Clients[0].Name)

	all, err := svc.List(ctx, clientdomain.ListClientRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Clients, 3)
}

func TestDeleteClientBlockedByInvoices(t *testing.T) {
	ctx := context.Background()
	svc, db, node := setupTest(t)

	created, err := svc.Create(ctx, createRequest("Acme Co"))
	require.NoError(t, err)

	now := time.Now().UTC()
	invoice := invoicedomain.Invoice{
		ID:            node.Generate(),
		InvoiceNumber: "INV-0001",
		ClientID:      created.ID,
		Status:        invoicedomain.StatusDraft,
		IssueDate:     now,
		DueDate:       now.AddDate(0, 0, 30),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, db.Create(&invoice).Error)

	err = svc.Delete(ctx, clientdomain.DeleteClientRequest{ID: created.ID.String()})
	assert.ErrorIs(t, err, clientdomain.ErrHasInvoices)

	require.NoError(t, db.Delete(&invoice).Error)
	require.NoError(t, svc.Delete(ctx, clientdomain.DeleteClientRequest{ID: created.ID.String()}))

	_, err = svc.GetByID(ctx, clientdomain.GetClientRequest{ID: created.ID.String()})
	assert.ErrorIs(t, err, clientdomain.ErrNotFound)
}
