package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/netsspi/internal/cli/output"
	"github.com/marmos91/netsspi/internal/cli/timeutil"
	"github.com/marmos91/netsspi/pkg/dispatch"
	"github.com/marmos91/netsspi/pkg/protocol"
	"github.com/marmos91/netsspi/pkg/wire"
)

var acquireInbound bool

var acquireCmd = &cobra.Command{
	Use:   "acquire",
	Short: "Acquire and inspect a credential handle",
	Long: `Acquire a credential handle on the server, print its account name and
lifetime, then release it.

Examples:
  # Outbound credential for alice
  netsspi acquire --user alice --domain CORP --prompt

  # Inbound (acceptor) credential
  netsspi acquire --inbound -o json`,
	Args: cobra.NoArgs,
	RunE: runAcquire,
}

func init() {
	f := acquireCmd.Flags()
	f.StringVar(&hsPackage, "package", "NTLM", "Security package (NTLM|Negotiate)")
	f.StringVarP(&hsUser, "user", "u", "", "User name (empty for anonymous)")
	f.StringVarP(&hsDomain, "domain", "d", "", "User domain")
	f.StringVarP(&hsPassword, "password", "p", "", "Password (prefer --prompt)")
	f.BoolVar(&hsPrompt, "prompt", false, "Prompt for the password")
	f.BoolVar(&acquireInbound, "inbound", false, "Acquire an inbound (acceptor) credential")
}

// credentialView is what the acquire command prints.
type credentialView struct {
	Package  string `json:"package" yaml:"package"`
	Use      string `json:"use" yaml:"use"`
	Handle   string `json:"handle" yaml:"handle"`
	Account  string `json:"account,omitempty" yaml:"account,omitempty"`
	Expiry   string `json:"expiry" yaml:"expiry"`
	Lifespan string `json:"lifespan,omitempty" yaml:"lifespan,omitempty"`
}

func (v *credentialView) fields() output.Fields {
	return output.Fields{
		{"Package", v.Package},
		{"Use", v.Use},
		{"Handle", v.Handle},
		{"Account", v.Account},
		{"Expiry", v.Expiry},
		{"Lifespan", v.Lifespan},
	}
}

func (v *credentialView) Headers() []string { return v.fields().Headers() }
func (v *credentialView) Rows() [][]string  { return v.fields().Rows() }

func runAcquire(cmd *cobra.Command, args []string) error {
	printer, err := newPrinter(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var identity *wire.AuthIdentity
	if !acquireInbound {
		if identity, err = handshakeIdentity(cfg); err != nil {
			return err
		}
	}

	ctx := commandContext(cmd)
	client, conn, err := dial(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	use, useName := protocol.CredentialUseOutbound, "outbound"
	if acquireInbound {
		use, useName = protocol.CredentialUseInbound, "inbound"
	}
	resp, status, err := client.AcquireCredentialsHandle(ctx, &protocol.AcquireCredentialsHandleRequest{
		Package:       protoString(cfg, hsPackage),
		CredentialUse: use,
		Identity:      identity,
	})
	if identity != nil {
		identity.Clear()
	}
	if err != nil {
		return err
	}
	if status.IsError() {
		return fmt.Errorf("AcquireCredentialsHandle: %s", status)
	}
	defer func() {
		_, _, _ = client.FreeCredentialsHandle(ctx, &protocol.FreeCredentialsHandleRequest{Credential: resp.Credential})
	}()

	now := time.Now()
	view := &credentialView{
		Package: hsPackage,
		Use:     useName,
		Handle:  resp.Credential.String(),
		Expiry:  timeutil.FormatExpiry(resp.Expiry, now),
	}
	if names, ok := queryCredentialAttribute(cmd, client, resp.Credential, protocol.AttrNames); ok {
		view.Account = string(names)
	}
	if span, ok := queryCredentialAttribute(cmd, client, resp.Credential, protocol.AttrLifespan); ok {
		r := wire.NewReader(span)
		r.ReadTimestamp()
		expiry := r.ReadTimestamp()
		if r.Err() == nil {
			view.Lifespan = timeutil.FormatExpiry(expiry, now)
		}
	}
	return printer.Print(view)
}

// queryCredentialAttribute returns the attribute buffer, or false when the
// server does not report it.
func queryCredentialAttribute(cmd *cobra.Command, client *dispatch.Client, cred wire.Handle, attr uint32) ([]byte, bool) {
	resp, status, err := client.QueryCredentialsAttributes(commandContext(cmd), &protocol.QueryCredentialsAttributesRequest{
		Credential: cred,
		Attribute:  attr,
	})
	if err != nil || status != protocol.StatusOK || resp == nil {
		return nil, false
	}
	return resp.Buffer, true
}
