// Package cli implements fastlink-cli, a terminal client that signs in to
// a FastLink server and keeps the session on disk between runs.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aussiebroadwan/fastlink/pkg/authsdk"
)

// ErrUsage is returned for an unknown or malformed command.
var ErrUsage = errors.New("usage: fastlink-cli <register|login|verify|reset|whoami|orders|logout>")

// App runs one command against a session.
type App struct {
	Client  *authsdk.SDKClient
	Session *authsdk.Session

	in  *bufio.Reader
	out io.Writer
}

func NewApp(client *authsdk.SDKClient, session *authsdk.Session, in io.Reader, out io.Writer) *App {
	return &App{Client: client, Session: session, in: bufio.NewReader(in), out: out}
}

// Run dispatches args[0]. The session must already be initialized.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}

	switch args[0] {
	case "register":
		return a.register(ctx)
	case "login":
		return a.login(ctx, args[1:])
	case "verify":
		return a.verify(ctx)
	case "reset":
		return a.reset(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "orders":
		return a.orders(ctx)
	case "logout":
		return a.logout(ctx)
	}
	return ErrUsage
}

func (a *App) register(ctx context.Context) error {
	return a.sendCode(ctx, authsdk.FlowRegister, a.Client.SendRegistrationOTP)
}

func (a *App) reset(ctx context.Context) error {
	return a.sendCode(ctx, authsdk.FlowPasswordReset, a.Client.SendPasswordResetOTP)
}

func (a *App) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(a.out)
	method := fs.String("method", "otp", "otp, password or pin")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}

	switch *method {
	case "otp":
		return a.sendCode(ctx, authsdk.FlowLogin, a.Client.SendLoginOTP)
	case "password", "pin":
	default:
		return ErrUsage
	}

	email, err := prompt(a.in, a.out, "Email")
	if err != nil {
		return err
	}

	var user *authsdk.User
	if *method == "password" {
		password, err := promptSecret(a.out, "Password")
		if err != nil {
			return err
		}
		user, err = a.Session.LoginWithPassword(ctx, email, password)
		if err != nil {
			return err
		}
	} else {
		pin, err := promptSecret(a.out, "PIN")
		if err != nil {
			return err
		}
		user, err = a.Session.LoginWithPIN(ctx, email, pin)
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(a.out, "Signed in as %s\n", user.Email)
	return nil
}

// sendCode asks for an email, sends a code and continues straight into
// verify. If the program stops in between, "verify" picks up the flow.
func (a *App) sendCode(ctx context.Context, flow string, send func(context.Context, string) (*authsdk.SendCodeResponse, error)) error {
	email, err := prompt(a.in, a.out, "Email")
	if err != nil {
		return err
	}

	res, err := send(ctx, email)
	if err != nil {
		return err
	}
	if err := a.Session.SetPendingEmail(ctx, res.Email); err != nil {
		return err
	}
	if err := a.Session.SetPendingFlow(ctx, flow); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s (%s)\n", res.Message, res.Email)
	return a.verify(ctx)
}

func (a *App) verify(ctx context.Context) error {
	email, flow := a.Session.Pending()
	if email == "" {
		return errors.New("nothing to verify: run register, login or reset first")
	}

	code, err := prompt(a.in, a.out, "Verification code")
	if err != nil {
		return err
	}

	switch flow {
	case authsdk.FlowRegister:
		user, err := a.Session.VerifyRegistrationOTP(ctx, email, code)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Registered %s\n", user.Email)
		if !user.HasCompletedProfile {
			return a.completeProfile(ctx)
		}
		return nil

	case authsdk.FlowLogin:
		user, err := a.Session.VerifyLoginOTP(ctx, email, code)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Signed in as %s\n", user.Email)
		return nil

	case authsdk.FlowPasswordReset:
		password, err := promptSecret(a.out, "New password")
		if err != nil {
			return err
		}
		res, err := a.Client.VerifyPasswordResetOTP(ctx, email, code, password)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, res.Message)
		return a.Session.ClearPending(ctx)
	}

	return fmt.Errorf("unknown pending flow %q", flow)
}

func (a *App) completeProfile(ctx context.Context) error {
	name, err := prompt(a.in, a.out, "Name")
	if err != nil {
		return err
	}
	password, err := promptSecret(a.out, "Password")
	if err != nil {
		return err
	}
	pin, err := promptSecret(a.out, "PIN (4-6 digits)")
	if err != nil {
		return err
	}

	user, err := a.Session.CompleteProfile(ctx, authsdk.CompleteProfileRequest{Name: name, Password: password, PIN: pin})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s\n", user.Name)
	return nil
}

func (a *App) whoami(ctx context.Context) error {
	if !a.Session.IsAuthenticated() {
		return errors.New("not signed in")
	}
	user, err := a.Session.Me(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", user.ID)
	fmt.Fprintf(tw, "Email\t%s\n", user.Email)
	fmt.Fprintf(tw, "Name\t%s\n", user.Name)
	fmt.Fprintf(tw, "Verified\t%t\n", user.IsVerified)
	fmt.Fprintf(tw, "Profile complete\t%t\n", user.HasCompletedProfile)
	return tw.Flush()
}

func (a *App) orders(ctx context.Context) error {
	orders, err := a.Session.ListJobOrders(ctx)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		fmt.Fprintln(a.out, "No job orders")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tSTATUS\tCOMPANY\tCREATED")
	for _, o := range orders {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", o.OrderNo, o.Status, o.Customer.Company, o.CreatedAt.Format("2006-01-02"))
	}
	return tw.Flush()
}

func (a *App) logout(ctx context.Context) error {
	if err := a.Session.SignOut(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}
