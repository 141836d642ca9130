package core

import (
	"errors"
	"testing"
)

func validRegistration() Registration {
	return Registration{
		Name:            "Ada",
		Age:             "36",
		Gender:          "Female",
		MaritalStatus:   "Married",
		Phone:           "555-0101",
		Email:           "ada@example.com",
		MonthlySalary:   "50000",
		Password:        "secret",
		ConfirmPassword: "secret",
	}
}

func TestRegistrationProfile(t *testing.T) {
	p, err := validRegistration().Profile()
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if p.Age != "36" || p.Gender != "Female" || p.MaritalStatus != "Married" {
		t.Fatalf("fields mapped to wrong slots: %+v", p)
	}
	if p.MonthlySalary.String() != "50000" {
		t.Fatalf("unexpected salary %s", p.MonthlySalary)
	}
}

func TestRegistrationProfileRejects(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(*Registration)
		field string
	}{
		{"empty name", func(r *Registration) { r.Name = "  " }, "name"},
		{"empty email", func(r *Registration) { r.Email = "" }, "email"},
		{"bad age", func(r *Registration) { r.Age = "old" }, "age"},
		{"bad salary", func(r *Registration) { r.MonthlySalary = "x" }, "monthly salary"},
		{"negative salary", func(r *Registration) { r.MonthlySalary = "-5" }, "monthly salary"},
		{"empty password", func(r *Registration) { r.Password, r.ConfirmPassword = "", "" }, "password"},
		{"password mismatch", func(r *Registration) { r.ConfirmPassword = "other" }, "password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := validRegistration()
			tc.edit(&r)
			_, err := r.Profile()
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tc.field {
				t.Fatalf("expected field %q, got %v", tc.field, err)
			}
		})
	}
}

func TestProfileUpdateApply(t *testing.T) {
	base, err := validRegistration().Profile()
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	name, salary := "Ada L.", "60000,50"
	got, err := ProfileUpdate{Name: &name, MonthlySalary: &salary}.Apply(base)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if got.Name != "Ada L." || got.MonthlySalary.String() != "60000.5" {
		t.Fatalf("update not applied: %+v", got)
	}
	if got.Email != base.Email || got.Phone != base.Phone {
		t.Fatalf("untouched fields changed: %+v", got)
	}

	empty := ""
	if _, err := (ProfileUpdate{Phone: &empty}).Apply(base); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for empty phone, got %v", err)
	}
}

func TestExpenseForm(t *testing.T) {
	e, err := ExpenseForm{Category: " Food ", Amount: "20000"}.Expense()
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if e.Category != "Food" || e.Amount.String() != "20000" {
		t.Fatalf("unexpected expense %+v", e)
	}
	if _, err := (ExpenseForm{Category: "", Amount: "1"}).Expense(); err == nil {
		t.Fatalf("expected error for empty category")
	}
	if _, err := (ExpenseForm{Category: "Food", Amount: "ten"}).Expense(); err == nil {
		t.Fatalf("expected error for bad amount")
	}
}
