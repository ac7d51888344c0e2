package repo

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/quickcart-labs/quickcart-backend/pkg/db/dbtest"
	pkgerrors "github.com/quickcart-labs/quickcart-backend/pkg/errors"
)

func TestNewBaseStoresConnection(t *testing.T) {
	db := dbtest.Open(t)
	base := NewBase(db)

	if base.db != db || base.Conn() != db {
		t.Fatalf("expected base db to match provided connection")
	}
}

func TestBaseDB_BindsContext(t *testing.T) {
	db := dbtest.Open(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	withCtx := base.DB(ctx)

	if withCtx == nil {
		t.Fatalf("expected non-nil DB when context provided")
	}
	if withCtx.Statement == nil {
		t.Fatalf("expected statement created after WithContext")
	}
	if withCtx.Statement.Context != ctx {
		t.Fatalf("expected context to flow through, got %v", withCtx.Statement.Context)
	}

	//nolint:staticcheck // nil context is part of the contract
	withoutCtx := base.DB(nil)
	if withoutCtx != db {
		t.Fatalf("expected nil context to return raw connection")
	}
}

func TestNotFound(t *testing.T) {
	if err := NotFound(nil, "x"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := NotFound(gorm.ErrRecordNotFound, "order not found"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	if err := NotFound(errors.New("conn reset"), "x"); !pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected INTERNAL_ERROR, got %v", err)
	}
	typed := pkgerrors.New(pkgerrors.CodeConflict, "busy")
	if err := NotFound(typed, "x"); err != typed {
		t.Fatalf("expected typed error to pass through, got %v", err)
	}
}
