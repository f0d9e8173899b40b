package entities

import "testing"

func TestNewCreditType_Success(t *testing.T) {
	ct, err := NewCreditType("points", "loyalty reward points")
	if err != nil {
		t.Fatalf("NewCreditType() error = %v, want nil", err)
	}
	if ct.Name() != "points" {
		t.Errorf("Name() = %v, want points", ct.Name())
	}
	if ct.Description() != "loyalty reward points" {
		t.Errorf("Description() = %v, want loyalty reward points", ct.Description())
	}
}

func TestNewCreditType_RequiresName(t *testing.T) {
	_, err := NewCreditType("", "anything")
	if err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestCreditType_UpdateDescription(t *testing.T) {
	ct, _ := NewCreditType("points", "old")
	before := ct.UpdatedAt()

	ct.UpdateDescription("new")

	if ct.Description() != "new" {
		t.Errorf("Description() = %v, want new", ct.Description())
	}
	if ct.UpdatedAt().Before(before) {
		t.Error("UpdatedAt should not move backwards")
	}
}
