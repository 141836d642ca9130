package core

import (
	"strings"
)

// Registration is the sign-up form as typed by the user.
type Registration struct {
	Name            string
	Age             string
	Gender          string
	MaritalStatus   string
	Phone           string
	Email           string
	MonthlySalary   string
	Password        string
	ConfirmPassword string
}

// Profile validates the form and returns the profile it describes.
func (r Registration) Profile() (Profile, error) {
	required := []struct {
		field string
		value string
	}{
		{"name", r.Name},
		{"gender", r.Gender},
		{"marital status", r.MaritalStatus},
		{"phone", r.Phone},
		{"email", r.Email},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return Profile{}, invalid(f.field, "must not be empty")
		}
	}

	age, err := ParseAge(r.Age)
	if err != nil {
		return Profile{}, err
	}
	salary, err := ParseSalary(r.MonthlySalary)
	if err != nil {
		return Profile{}, err
	}
	if r.Password == "" {
		return Profile{}, invalid("password", "must not be empty")
	}
	if r.Password != r.ConfirmPassword {
		return Profile{}, invalid("password", "passwords do not match")
	}

	return Profile{
		Name:          strings.TrimSpace(r.Name),
		Age:           age,
		Gender:        strings.TrimSpace(r.Gender),
		MaritalStatus: strings.TrimSpace(r.MaritalStatus),
		Phone:         strings.TrimSpace(r.Phone),
		Email:         strings.TrimSpace(r.Email),
		MonthlySalary: salary,
	}, nil
}

// ProfileUpdate carries edited profile fields. Nil fields are left alone.
// Email is not editable once registered.
type ProfileUpdate struct {
	Name          *string
	Age           *string
	Gender        *string
	MaritalStatus *string
	Phone         *string
	MonthlySalary *string
}

// Apply returns p with the update applied.
func (u ProfileUpdate) Apply(p Profile) (Profile, error) {
	text := []struct {
		field string
		value *string
		dst   *string
	}{
		{"name", u.Name, &p.Name},
		{"gender", u.Gender, &p.Gender},
		{"marital status", u.MaritalStatus, &p.MaritalStatus},
		{"phone", u.Phone, &p.Phone},
	}
	for _, f := range text {
		if f.value == nil {
			continue
		}
		v := strings.TrimSpace(*f.value)
		if v == "" {
			return Profile{}, invalid(f.field, "must not be empty")
		}
		*f.dst = v
	}

	if u.Age != nil {
		age, err := ParseAge(*u.Age)
		if err != nil {
			return Profile{}, err
		}
		p.Age = age
	}
	if u.MonthlySalary != nil {
		salary, err := ParseSalary(*u.MonthlySalary)
		if err != nil {
			return Profile{}, err
		}
		p.MonthlySalary = salary
	}
	return p, nil
}

// ExpenseForm is the add-expense form as typed by the user.
type ExpenseForm struct {
	Category string
	Amount   string
}

// Expense validates the form. ID and timestamp are left for the store to fill.
func (f ExpenseForm) Expense() (Expense, error) {
	category := strings.TrimSpace(f.Category)
	if category == "" {
		return Expense{}, invalid("category", "must not be empty")
	}
	amount, err := ParseAmount(f.Amount)
	if err != nil {
		return Expense{}, err
	}
	return Expense{Category: category, Amount: amount}, nil
}
