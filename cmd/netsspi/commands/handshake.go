package commands

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/netsspi/internal/cli/output"
	"github.com/marmos91/netsspi/internal/cli/prompt"
	"github.com/marmos91/netsspi/internal/cli/timeutil"
	"github.com/marmos91/netsspi/internal/logger"
	"github.com/marmos91/netsspi/pkg/config"
	"github.com/marmos91/netsspi/pkg/dispatch"
	"github.com/marmos91/netsspi/pkg/protocol"
	"github.com/marmos91/netsspi/pkg/wire"
)

// maxHandshakeRounds bounds the Initialize/Accept exchange.
const maxHandshakeRounds = 8

var (
	hsPackage  string
	hsUser     string
	hsDomain   string
	hsPassword string
	hsPrompt   bool
	hsTarget   string
	hsMessage  string
)

var handshakeCmd = &cobra.Command{
	Use:   "handshake",
	Short: "Run a loopback handshake against a server",
	Long: `Drive both sides of a context handshake through a running server, then
seal and sign a message in each direction.

The server plays the initiator and the acceptor at once, so this checks
credentials, the package and the transport end to end. Without --user the
initiator logs on anonymously, which servers with configured users reject.

Examples:
  # NTLM handshake with a password prompt
  netsspi handshake --user alice --domain CORP --prompt

  # SPNEGO-wrapped handshake over a Unix socket
  netsspi handshake --package Negotiate --user alice --password s3cret \
    --transport ipc --address /run/netsspi.sock`,
	Args: cobra.NoArgs,
	RunE: runHandshake,
}

func init() {
	f := handshakeCmd.Flags()
	f.StringVar(&hsPackage, "package", "NTLM", "Security package (NTLM|Negotiate)")
	f.StringVarP(&hsUser, "user", "u", "", "Initiator user name (empty for anonymous)")
	f.StringVarP(&hsDomain, "domain", "d", "", "Initiator domain")
	f.StringVarP(&hsPassword, "password", "p", "", "Initiator password")
	f.BoolVar(&hsPrompt, "prompt", false, "Prompt for the password")
	f.StringVar(&hsTarget, "target", "host/localhost", "Target name passed to InitializeSecurityContext")
	f.StringVar(&hsMessage, "message", "hello from netsspi", "Message sealed and signed after the handshake")
}

// handshakeStep is one call of the exchange.
type handshakeStep struct {
	Function string `json:"function" yaml:"function"`
	Status   string `json:"status" yaml:"status"`
	Detail   string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// handshakeResult is what the command prints.
type handshakeResult struct {
	Package  string          `json:"package" yaml:"package"`
	Account  string          `json:"account,omitempty" yaml:"account,omitempty"`
	Expiry   string          `json:"expiry,omitempty" yaml:"expiry,omitempty"`
	Protects bool            `json:"message_protection" yaml:"message_protection"`
	Steps    []handshakeStep `json:"steps" yaml:"steps"`
}

func (r *handshakeResult) Headers() []string {
	return []string{"#", "Function", "Status", "Detail"}
}

func (r *handshakeResult) Rows() [][]string {
	rows := make([][]string, 0, len(r.Steps))
	for i, s := range r.Steps {
		rows = append(rows, []string{fmt.Sprint(i + 1), s.Function, s.Status, s.Detail})
	}
	return rows
}

// handshake runs the exchange and records every call.
type handshake struct {
	cfg    *config.Config
	client *dispatch.Client
	result handshakeResult
}

func (h *handshake) record(fn string, status protocol.Status, detail string) {
	h.result.Steps = append(h.result.Steps, handshakeStep{Function: fn, Status: status.String(), Detail: detail})
	logger.Debug("Handshake step", "function", fn, "status", status.String(), "detail", detail)
}

func runHandshake(cmd *cobra.Command, args []string) error {
	printer, err := newPrinter(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	identity, err := handshakeIdentity(cfg)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	client, conn, err := dial(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	h := &handshake{cfg: cfg, client: client, result: handshakeResult{Package: hsPackage}}
	runErr := h.run(cmd, identity)

	if err := printer.Print(&h.result); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	switch {
	case h.result.Protects:
		printer.Success(fmt.Sprintf("Handshake complete: %s authenticated with %s", h.result.Account, h.result.Package))
	default:
		printer.Warning(fmt.Sprintf("Handshake complete: %s authenticated without message protection", h.result.Account))
	}
	return nil
}

// handshakeIdentity builds the initiator identity from the flags. It
// returns nil for an anonymous logon.
func handshakeIdentity(cfg *config.Config) (*wire.AuthIdentity, error) {
	if hsUser == "" {
		return nil, nil
	}
	password := hsPassword
	if hsPrompt {
		var err error
		password, err = prompt.Password(fmt.Sprintf("Password for %s", hsUser))
		if err != nil {
			return nil, err
		}
	}

	id := &wire.AuthIdentity{Flags: wire.AuthIdentityANSI}
	if cfg.Transport.Unicode {
		id.Flags = wire.AuthIdentityUnicode
	}
	id.User = protoString(cfg, hsUser)
	id.Domain = protoString(cfg, hsDomain)
	id.Password = protoString(cfg, password)
	return id, nil
}

func (h *handshake) run(cmd *cobra.Command, identity *wire.AuthIdentity) error {
	ctx := commandContext(cmd)
	pkg := protoString(h.cfg, hsPackage)

	clientCred, err := h.acquire(cmd, pkg, protocol.CredentialUseOutbound, identity)
	if err != nil {
		return err
	}
	defer h.freeCredential(cmd, clientCred)
	if identity != nil {
		identity.Clear()
	}

	serverCred, err := h.acquire(cmd, pkg, protocol.CredentialUseInbound, nil)
	if err != nil {
		return err
	}
	defer h.freeCredential(cmd, serverCred)

	var (
		clientCtx, serverCtx   wire.Handle
		toServer, toClient     wire.SecBufferDesc
		clientDone, serverDone bool
		contextAttr            uint32
		expiry                 wire.Timestamp
	)
	defer func() {
		h.deleteContext(cmd, serverCtx)
		h.deleteContext(cmd, clientCtx)
	}()
	for round := 0; round < maxHandshakeRounds && !(clientDone && serverDone); round++ {
		if !clientDone {
			resp, status, err := h.client.InitializeSecurityContext(ctx, &protocol.InitializeSecurityContextRequest{
				Credential:    clientCred,
				Context:       clientCtx,
				TargetName:    protoString(h.cfg, hsTarget),
				ContextReq:    protocol.ContextReqConfidentiality | protocol.ContextReqIntegrity | protocol.ContextReqConnection,
				TargetDataRep: protocol.DataRepNative,
				Input:         toClient,
			})
			if err != nil {
				return err
			}
			if resp != nil {
				clientCtx = resp.NewContext
				toServer = resp.Output
			}
			h.record("InitializeSecurityContext", status, tokenDetail(toServer))
			if status.IsError() {
				return fmt.Errorf("InitializeSecurityContext: %s", status)
			}
			clientDone = status == protocol.StatusOK
		}
		if serverDone || (clientDone && tokenLen(toServer) == 0) {
			continue
		}

		resp, status, err := h.client.AcceptSecurityContext(ctx, &protocol.AcceptSecurityContextRequest{
			Credential:    serverCred,
			Context:       serverCtx,
			Input:         toServer,
			ContextReq:    protocol.ContextReqConfidentiality | protocol.ContextReqIntegrity | protocol.ContextReqConnection,
			TargetDataRep: protocol.DataRepNative,
		})
		if err != nil {
			return err
		}
		if resp != nil {
			serverCtx = resp.NewContext
			toClient = resp.Output
			contextAttr = resp.ContextAttr
			expiry = resp.Expiry
		}
		h.record("AcceptSecurityContext", status, tokenDetail(toClient))
		if status.IsError() {
			return fmt.Errorf("AcceptSecurityContext: %s", status)
		}
		serverDone = status == protocol.StatusOK
	}
	if !clientDone || !serverDone {
		return fmt.Errorf("handshake did not complete in %d rounds", maxHandshakeRounds)
	}
	h.result.Expiry = timeutil.FormatExpiry(expiry, time.Now())
	h.record("(context established)", protocol.StatusOK, "attributes "+output.Flags(contextAttr))

	names, status, err := h.client.QueryContextAttributes(ctx, &protocol.QueryContextAttributesRequest{
		Context:   serverCtx,
		Attribute: protocol.AttrNames,
	})
	if err != nil {
		return err
	}
	if status == protocol.StatusOK && names != nil {
		h.result.Account = string(names.Buffer)
	}
	h.record("QueryContextAttributes", status, "names "+h.result.Account)

	return h.protect(cmd, clientCtx, serverCtx)
}

// protect seals a message from initiator to acceptor and signs one back.
// Contexts without a session key report SEC_E_UNSUPPORTED_FUNCTION, which
// is not a failure.
func (h *handshake) protect(cmd *cobra.Command, clientCtx, serverCtx wire.Handle) error {
	ctx := commandContext(cmd)

	sizes, status, err := h.client.QueryContextAttributes(ctx, &protocol.QueryContextAttributesRequest{
		Context:   clientCtx,
		Attribute: protocol.AttrSizes,
	})
	if err != nil {
		return err
	}
	h.record("QueryContextAttributes", status, "sizes")
	if status.IsError() || sizes == nil || len(sizes.Buffer) < 8 {
		return fmt.Errorf("QueryContextAttributes(sizes): %s", status)
	}
	sigSize := binary.LittleEndian.Uint32(sizes.Buffer[4:8])

	message := func() wire.SecBufferDesc {
		return wire.NewSecBufferDesc(
			wire.SecBuffer{Type: wire.SecBufferToken, Data: make([]byte, sigSize)},
			wire.SecBuffer{Type: wire.SecBufferData, Data: []byte(hsMessage)},
		)
	}

	enc, status, err := h.client.EncryptMessage(ctx, &protocol.EncryptMessageRequest{Context: clientCtx, Message: message()})
	if err != nil {
		return err
	}
	if status == protocol.StatusUnsupportedFunction {
		h.record("EncryptMessage", status, "no session key")
		return nil
	}
	h.record("EncryptMessage", status, "")
	if status.IsError() {
		return fmt.Errorf("EncryptMessage: %s", status)
	}

	dec, status, err := h.client.DecryptMessage(ctx, &protocol.DecryptMessageRequest{Context: serverCtx, Message: enc.Message})
	if err != nil {
		return err
	}
	if status.IsError() {
		h.record("DecryptMessage", status, "")
		return fmt.Errorf("DecryptMessage: %s", status)
	}
	data, _ := dec.Message.Find(wire.SecBufferData)
	if data == nil || !bytes.Equal(data.Data, []byte(hsMessage)) {
		h.record("DecryptMessage", status, "plaintext mismatch")
		return errors.New("DecryptMessage returned a different plaintext")
	}
	h.record("DecryptMessage", status, fmt.Sprintf("%q", hsMessage))

	signed, status, err := h.client.MakeSignature(ctx, &protocol.MakeSignatureRequest{Context: serverCtx, Message: message(), SeqNo: 1})
	if err != nil {
		return err
	}
	h.record("MakeSignature", status, "")
	if status.IsError() {
		return fmt.Errorf("MakeSignature: %s", status)
	}

	_, status, err = h.client.VerifySignature(ctx, &protocol.VerifySignatureRequest{Context: clientCtx, Message: signed.Message, SeqNo: 1})
	if err != nil {
		return err
	}
	h.record("VerifySignature", status, tokenDetail(signed.Message))
	if status.IsError() {
		return fmt.Errorf("VerifySignature: %s", status)
	}

	h.result.Protects = true
	return nil
}

func (h *handshake) acquire(cmd *cobra.Command, pkg wire.String, use uint32, identity *wire.AuthIdentity) (wire.Handle, error) {
	resp, status, err := h.client.AcquireCredentialsHandle(commandContext(cmd), &protocol.AcquireCredentialsHandleRequest{
		Package:       pkg,
		CredentialUse: use,
		Identity:      identity,
	})
	if err != nil {
		return wire.Handle{}, err
	}
	side := "inbound"
	if use == protocol.CredentialUseOutbound {
		side = "outbound"
	}
	h.record("AcquireCredentialsHandle", status, side)
	if status.IsError() {
		return wire.Handle{}, fmt.Errorf("AcquireCredentialsHandle(%s): %s", side, status)
	}
	return resp.Credential, nil
}

func (h *handshake) freeCredential(cmd *cobra.Command, cred wire.Handle) {
	_, status, err := h.client.FreeCredentialsHandle(commandContext(cmd), &protocol.FreeCredentialsHandleRequest{Credential: cred})
	if err != nil {
		logger.Debug("FreeCredentialsHandle failed", logger.Err(err))
		return
	}
	h.record("FreeCredentialsHandle", status, "")
}

func (h *handshake) deleteContext(cmd *cobra.Command, ctxHandle wire.Handle) {
	if ctxHandle.IsZero() {
		return
	}
	_, status, err := h.client.DeleteSecurityContext(commandContext(cmd), &protocol.DeleteSecurityContextRequest{Context: ctxHandle})
	if err != nil {
		logger.Debug("DeleteSecurityContext failed", logger.Err(err))
		return
	}
	h.record("DeleteSecurityContext", status, "")
}

func tokenLen(d wire.SecBufferDesc) int {
	if b, ok := d.Find(wire.SecBufferToken); ok {
		return len(b.Data)
	}
	return 0
}

func tokenDetail(d wire.SecBufferDesc) string {
	b, ok := d.Find(wire.SecBufferToken)
	if !ok || len(b.Data) == 0 {
		return ""
	}
	return fmt.Sprintf("token %s", strings.TrimSpace(output.Hex(b.Data, 12)))
}
