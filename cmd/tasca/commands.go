package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"tasca/internal/aggregate"
	"tasca/internal/auth"
	"tasca/internal/core"
)

func runRegister(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("register")
	var form core.Registration
	fs.StringVar(&form.Name, "name", "", "Full name")
	fs.StringVar(&form.Age, "age", "", "Age in years")
	fs.StringVar(&form.Gender, "gender", "", "Gender")
	fs.StringVar(&form.MaritalStatus, "marital", "", "Marital status")
	fs.StringVar(&form.Phone, "phone", "", "Phone number")
	fs.StringVar(&form.Email, "email", "", "Email address")
	fs.StringVar(&form.MonthlySalary, "salary", "", "Monthly salary")
	fs.StringVar(&form.Password, "password", "", "Password (optional, will prompt if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if form.Password == "" {
		var err error
		if form.Password, err = a.readPassword("Password: "); err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		if form.ConfirmPassword, err = a.readPassword("Confirm password: "); err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	} else {
		form.ConfirmPassword = form.Password
	}

	profile, err := form.Profile()
	if err != nil {
		return err
	}
	user, err := a.store.Register(ctx, profile, form.Password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registered %s <%s>\n", user.Name, user.Email)
	return nil
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("login")
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (prompted if omitted and passwords are checked)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		fmt.Fprintln(a.out, "Usage: tasca login -email <email> [-password <password>]")
		return fmt.Errorf("missing required flags: email")
	}

	if *password == "" && a.cfg.VerifyPasswords {
		p, err := a.readPassword("Password: ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		*password = p
	}

	user, err := a.store.Authenticate(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func runBiometric(ctx context.Context, a *app, args []string) error {
	if err := a.flagSet("biometric").Parse(args); err != nil {
		return err
	}
	user, err := a.store.SignInWithBiometrics(ctx, auth.PromptVerifier{In: a.in, Out: a.out})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "\nSigned in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func runLogout(ctx context.Context, a *app, args []string) error {
	if err := a.flagSet("logout").Parse(args); err != nil {
		return err
	}
	if err := a.store.SignOut(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func runWhoami(_ context.Context, a *app, args []string) error {
	if err := a.flagSet("whoami").Parse(args); err != nil {
		return err
	}
	user, ok := a.store.CurrentUser()
	if !ok {
		fmt.Fprintln(a.out, "Not signed in")
		return nil
	}
	printProfile(a.out, user)
	return nil
}

func runAdd(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("add")
	var form core.ExpenseForm
	fs.StringVar(&form.Category, "category", "", "Expense category")
	fs.StringVar(&form.Amount, "amount", "", "Amount, e.g. 12.50")
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := form.Expense()
	if err != nil {
		return err
	}
	if _, err := a.currentUser(); err != nil {
		return err
	}
	added, err := a.store.AddExpense(ctx, e)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %s %s\n", added.Category, added.Amount.StringFixed(2))
	return nil
}

func runProfile(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("profile")
	fs.String("name", "", "Full name")
	fs.String("age", "", "Age in years")
	fs.String("gender", "", "Gender")
	fs.String("marital", "", "Marital status")
	fs.String("phone", "", "Phone number")
	fs.String("salary", "", "Monthly salary")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := a.currentUser()
	if err != nil {
		return err
	}

	var update core.ProfileUpdate
	changed := false
	fs.Visit(func(f *flag.Flag) {
		v := f.Value.String()
		changed = true
		switch f.Name {
		case "name":
			update.Name = &v
		case "age":
			update.Age = &v
		case "gender":
			update.Gender = &v
		case "marital":
			update.MaritalStatus = &v
		case "phone":
			update.Phone = &v
		case "salary":
			update.MonthlySalary = &v
		}
	})

	if changed {
		profile, err := update.Apply(user.Profile)
		if err != nil {
			return err
		}
		if user, err = a.store.UpdateProfile(ctx, profile); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Profile updated")
	}
	printProfile(a.out, user)
	return nil
}

func runSummary(_ context.Context, a *app, args []string) error {
	if err := a.flagSet("summary").Parse(args); err != nil {
		return err
	}
	user, err := a.currentUser()
	if err != nil {
		return err
	}

	s := a.dashboard.Summary(user)
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Income:\t%s\n", s.Income.StringFixed(2))
	fmt.Fprintf(tw, "Expenses:\t%s\n", s.TotalExpenses.StringFixed(2))
	fmt.Fprintf(tw, "Savings:\t%s\n", s.Savings.StringFixed(2))
	fmt.Fprintf(tw, "Spent:\t%s%%\n", s.SpendingPercentage.StringFixed(2))
	if s.BudgetExceeded {
		fmt.Fprintf(tw, "Budget:\texceeded\n")
	} else {
		fmt.Fprintf(tw, "Budget:\twithin limit\n")
	}
	if s.TopCategory != nil {
		fmt.Fprintf(tw, "Top category:\t%s (%s)\n", s.TopCategory.Name, s.TopCategory.Amount.StringFixed(2))
	}
	if len(s.Monthly) >= 2 {
		fmt.Fprintf(tw, "Trend:\t%s%%\n", s.Trend.StringFixed(2))
	}
	tw.Flush()

	if len(s.ByCategory) > 0 {
		fmt.Fprintln(a.out, "\nBy category:")
		tw = tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		for _, c := range s.ByCategory {
			fmt.Fprintf(tw, "  %s\t%s\t%s%%\n", c.Name, c.Amount.StringFixed(2), c.Percentage.StringFixed(2))
		}
		tw.Flush()
	}
	if len(s.Recent) > 0 {
		fmt.Fprintln(a.out, "\nRecent:")
		printExpenses(a.out, s.Recent)
	}
	return nil
}

func runReport(_ context.Context, a *app, args []string) error {
	fs := a.flagSet("report")
	category := fs.String("category", aggregate.AllCategories, "Category to show, or All")
	if err := fs.Parse(args); err != nil {
		return err
	}
	user, err := a.currentUser()
	if err != nil {
		return err
	}

	r := a.dashboard.Report(user, *category)
	fmt.Fprintf(a.out, "Category: %s\n", r.Category)
	if len(r.Categories) > 0 {
		fmt.Fprintf(a.out, "Available: %s\n", joinCategories(r.Categories))
	}
	if len(r.Expenses) == 0 {
		fmt.Fprintln(a.out, "No expenses")
	} else {
		printExpenses(a.out, r.Expenses)
	}
	fmt.Fprintf(a.out, "Total: %s\n", r.Total.StringFixed(2))
	return nil
}

func printProfile(w io.Writer, u core.User) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s\n", u.Name)
	fmt.Fprintf(tw, "Email:\t%s\n", u.Email)
	fmt.Fprintf(tw, "Age:\t%s\n", u.Age)
	fmt.Fprintf(tw, "Gender:\t%s\n", u.Gender)
	fmt.Fprintf(tw, "Marital status:\t%s\n", u.MaritalStatus)
	fmt.Fprintf(tw, "Phone:\t%s\n", u.Phone)
	fmt.Fprintf(tw, "Monthly salary:\t%s\n", u.MonthlySalary.StringFixed(2))
	fmt.Fprintf(tw, "Expenses:\t%d\n", len(u.Expenses))
	tw.Flush()
}

func printExpenses(w io.Writer, expenses []core.Expense) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range expenses {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", e.Timestamp.Local().Format("2006-01-02 15:04"), e.Category, e.Amount.StringFixed(2))
	}
	tw.Flush()
}

func joinCategories(names []string) string {
	out := aggregate.AllCategories
	for _, n := range names {
		out += ", " + n
	}
	return out
}
