package ntlm

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"

	"github.com/marmos91/netsspi/internal/logger"
	"github.com/marmos91/netsspi/pkg/dispatch"
	"github.com/marmos91/netsspi/pkg/metrics"
	"github.com/marmos91/netsspi/pkg/protocol"
	"github.com/marmos91/netsspi/pkg/wire"
)

type contextState int

const (
	stateNegotiateSent contextState = iota + 1
	stateChallengeSent
	stateEstablished
)

// securityContext is the provider side of a context handle. mu guards all
// fields, including the RC4 state inside sec.
type securityContext struct {
	mu              sync.Mutex
	pkg             *packageDef
	initiator       bool
	cred            *credential
	state           contextState
	flags           NegotiateFlag
	serverChallenge [serverChallengeSize]byte
	user            string
	domain          string
	anonymous       bool
	sec             *sessionSecurity
	impersonating   bool
	token           wire.Handle
	appData         []byte
	established     time.Time
	expiry          time.Time
}

// attributes maps negotiated NTLM flags onto context attribute flags.
func (c *securityContext) attributes() uint32 {
	attr := protocol.ContextReqConnection
	if c.flags.Has(FlagSign) {
		attr |= protocol.ContextReqIntegrity | protocol.ContextReqReplayDetect | protocol.ContextReqSequenceDetect
	}
	if c.flags.Has(FlagSeal) {
		attr |= protocol.ContextReqConfidentiality
	}
	return attr
}

func inputToken(d *wire.SecBufferDesc) ([]byte, bool) {
	b, ok := d.Find(wire.SecBufferToken)
	if !ok || len(b.Data) == 0 {
		return nil, false
	}
	return b.Data, true
}

func tokenOutput(tok []byte) wire.SecBufferDesc {
	return wire.NewSecBufferDesc(wire.SecBuffer{Type: wire.SecBufferToken, Data: tok})
}

// unwrap returns the NTLM message inside tok for the context's package.
func (c *securityContext) unwrap(tok []byte) ([]byte, error) {
	if !c.pkg.negotiate {
		return tok, nil
	}
	parsed, err := ParseSPNEGO(tok)
	if err != nil {
		return nil, err
	}
	return parsed.ntlmToken()
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return b
}

// =============================================================================
// Initiator
// =============================================================================

func (p *Provider) InitializeSecurityContext(ctx context.Context, req *protocol.InitializeSecurityContextRequest) (*protocol.InitializeSecurityContextResponse, protocol.Status) {
	cred, ok := p.credentials.get(req.Credential)
	if !ok {
		return nil, protocol.StatusInvalidHandle
	}
	if cred.use&protocol.CredentialUseOutbound == 0 {
		return nil, protocol.StatusNoCredentials
	}

	if req.Context.IsZero() {
		return p.initializeFirst(ctx, cred)
	}

	sc, ok := p.contexts.get(req.Context)
	if !ok {
		return nil, protocol.StatusInvalidHandle
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if !sc.initiator || sc.state != stateNegotiateSent {
		return nil, protocol.StatusOutOfSequence
	}

	in, ok := inputToken(&req.Input)
	if !ok {
		return nil, protocol.StatusInvalidToken
	}
	msg, err := sc.unwrap(in)
	if err != nil {
		logger.DebugCtx(ctx, "Rejecting challenge token", logger.Err(err))
		return nil, protocol.StatusInvalidToken
	}
	chal, err := ParseChallenge(msg)
	if err != nil {
		logger.DebugCtx(ctx, "Rejecting challenge token", logger.Err(err))
		return nil, protocol.StatusInvalidToken
	}

	auth, status := p.authenticate(sc, chal)
	if status.IsError() {
		return nil, status
	}
	out := BuildAuthenticate(auth)
	if sc.pkg.negotiate {
		if out, err = BuildResponse(NegStateAcceptCompleted, nil, out); err != nil {
			return nil, protocol.StatusInternalError
		}
	}

	sc.state = stateEstablished
	sc.established = p.now()
	logger.DebugCtx(ctx, "Initiator context established",
		logger.Package(sc.pkg.name()),
		logger.Handle(req.Context.String()))

	return &protocol.InitializeSecurityContextResponse{
		NewContext:  req.Context,
		Output:      tokenOutput(out),
		ContextAttr: sc.attributes(),
		Expiry:      timestamp(sc.expiry),
	}, protocol.StatusOK
}

// initializeFirst creates an initiator context and its NEGOTIATE token.
func (p *Provider) initializeFirst(ctx context.Context, cred *credential) (*protocol.InitializeSecurityContextResponse, protocol.Status) {
	cred.mu.Lock()
	anonymous := cred.anonymous()
	cred.mu.Unlock()

	sc := &securityContext{
		pkg:       cred.pkg,
		initiator: true,
		cred:      cred,
		state:     stateNegotiateSent,
		flags:     defaultFlags,
		anonymous: anonymous,
		expiry:    p.expiry(),
	}
	if anonymous {
		sc.flags |= FlagAnonymous
	}

	out := BuildNegotiate(&NegotiateMessage{Flags: sc.flags})
	if sc.pkg.negotiate {
		var err error
		if out, err = BuildInit(out); err != nil {
			return nil, protocol.StatusInternalError
		}
	}

	h := p.contexts.add(dispatch.ConnectionID(ctx), sc)
	logger.DebugCtx(ctx, "Initiator context created",
		logger.Package(sc.pkg.name()),
		logger.Handle(h.String()))

	return &protocol.InitializeSecurityContextResponse{
		NewContext:  h,
		Output:      tokenOutput(out),
		ContextAttr: sc.attributes(),
		Expiry:      timestamp(sc.expiry),
	}, protocol.StatusContinueNeeded
}

// authenticate computes the AUTHENTICATE message for chal and installs the
// context's session security.
func (p *Provider) authenticate(sc *securityContext, chal *ChallengeMessage) (*AuthenticateMessage, protocol.Status) {
	if !chal.Flags.Has(FlagExtendedSecurity) {
		return nil, protocol.StatusAlgorithmMismatch
	}
	pairs, err := ParseTargetInfo(chal.TargetInfo)
	if err != nil {
		return nil, protocol.StatusInvalidToken
	}

	sc.flags &= chal.Flags
	sc.flags |= FlagExtendedSecurity

	auth := &AuthenticateMessage{
		Workstation:    p.cfg.ComputerName,
		NegotiateFlags: sc.flags,
	}
	if sc.anonymous {
		auth.LmChallengeResponse = []byte{0}
		auth.NegotiateFlags |= FlagAnonymous
		return auth, protocol.StatusOK
	}

	sc.cred.mu.Lock()
	user, domain, ntHash := sc.cred.user, sc.cred.domain, sc.cred.ntHash
	sc.cred.mu.Unlock()

	ts, haveServerTime := findAvPair(pairs, AvTimestamp)
	stamp := Filetime(p.now())
	if haveServerTime && len(ts) == 8 {
		stamp = binary.LittleEndian.Uint64(ts)
	}
	var clientChallenge [8]byte
	copy(clientChallenge[:], randomBytes(8))

	r := computeNTLMv2(ntHash, user, domain, chal.ServerChallenge, clientChallenge, stamp, chal.TargetInfo, haveServerTime)
	auth.Username = user
	auth.Domain = domain
	auth.NtChallengeResponse = r.nt
	auth.LmChallengeResponse = r.lm

	exported := r.sessionBaseKey
	if sc.flags.Has(FlagKeyExchange) {
		exported = randomBytes(16)
		auth.EncryptedRandomSessionKey = rc4Once(r.sessionBaseKey, exported)
	}
	sc.user, sc.domain = user, domain
	sc.sec = newSessionSecurity(exported, sc.flags, true, 0, 0)
	return auth, protocol.StatusOK
}

// =============================================================================
// Acceptor
// =============================================================================

func (p *Provider) AcceptSecurityContext(ctx context.Context, req *protocol.AcceptSecurityContextRequest) (*protocol.AcceptSecurityContextResponse, protocol.Status) {
	cred, ok := p.credentials.get(req.Credential)
	if !ok {
		return nil, protocol.StatusInvalidHandle
	}
	if cred.use&protocol.CredentialUseInbound == 0 {
		return nil, protocol.StatusNoCredentials
	}
	in, ok := inputToken(&req.Input)
	if !ok {
		return nil, protocol.StatusInvalidToken
	}

	if req.Context.IsZero() {
		return p.acceptNegotiate(ctx, cred, in)
	}

	sc, ok := p.contexts.get(req.Context)
	if !ok {
		return nil, protocol.StatusInvalidHandle
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.initiator || sc.state != stateChallengeSent {
		return nil, protocol.StatusOutOfSequence
	}

	msg, err := sc.unwrap(in)
	if err != nil {
		logger.DebugCtx(ctx, "Rejecting authenticate token", logger.Err(err))
		return nil, protocol.StatusInvalidToken
	}
	auth, err := ParseAuthenticate(msg)
	if err != nil {
		logger.DebugCtx(ctx, "Rejecting authenticate token", logger.Err(err))
		return nil, protocol.StatusInvalidToken
	}

	if status := p.validate(sc, auth); status.IsError() {
		metrics.RecordLogon(p.cfg.Metrics, sc.pkg.name(), "denied")
		// A failed logon leaves nothing to continue.
		p.contexts.remove(req.Context)
		logger.WarnCtx(ctx, "NTLM logon denied",
			logger.Username(auth.Username),
			logger.Domain(auth.Domain),
			logger.Status(uint32(status)))
		return nil, status
	}

	var out []byte
	if sc.pkg.negotiate {
		if out, err = BuildAcceptComplete(); err != nil {
			return nil, protocol.StatusInternalError
		}
	}
	sc.state = stateEstablished
	sc.established = p.now()
	result := "success"
	if sc.anonymous {
		result = "anonymous"
	}
	metrics.RecordLogon(p.cfg.Metrics, sc.pkg.name(), result)
	logger.InfoCtx(ctx, "NTLM logon accepted",
		logger.Package(sc.pkg.name()),
		logger.Username(sc.user),
		logger.Domain(sc.domain),
		"anonymous", sc.anonymous)

	return &protocol.AcceptSecurityContextResponse{
		NewContext:  req.Context,
		Output:      tokenOutput(out),
		ContextAttr: sc.attributes(),
		Expiry:      timestamp(sc.expiry),
	}, protocol.StatusOK
}

// acceptNegotiate answers a NEGOTIATE with a CHALLENGE on a new context.
func (p *Provider) acceptNegotiate(ctx context.Context, cred *credential, in []byte) (*protocol.AcceptSecurityContextResponse, protocol.Status) {
	sc := &securityContext{
		pkg:    cred.pkg,
		cred:   cred,
		state:  stateChallengeSent,
		expiry: p.expiry(),
	}
	msg, err := sc.unwrap(in)
	if err != nil {
		logger.DebugCtx(ctx, "Rejecting negotiate token", logger.Err(err))
		return nil, protocol.StatusInvalidToken
	}
	neg, err := ParseNegotiate(msg)
	if err != nil {
		logger.DebugCtx(ctx, "Rejecting negotiate token", logger.Err(err))
		return nil, protocol.StatusInvalidToken
	}

	sc.flags = neg.Flags&defaultFlags | FlagExtendedSecurity | FlagNTLM | FlagTargetInfo | FlagTargetTypeServer
	if !neg.Flags.Has(FlagUnicode) {
		sc.flags |= FlagOEM
	}
	copy(sc.serverChallenge[:], randomBytes(serverChallengeSize))

	out := BuildChallenge(&ChallengeMessage{
		Flags:           sc.flags,
		ServerChallenge: sc.serverChallenge,
		TargetName:      p.cfg.TargetName,
		TargetInfo:      p.targetInfo(),
	})
	if sc.pkg.negotiate {
		if out, err = BuildAcceptIncomplete(out); err != nil {
			return nil, protocol.StatusInternalError
		}
	}

	h := p.contexts.add(dispatch.ConnectionID(ctx), sc)
	logger.DebugCtx(ctx, "Challenge issued",
		logger.Package(sc.pkg.name()),
		logger.Handle(h.String()))

	return &protocol.AcceptSecurityContextResponse{
		NewContext:  h,
		Output:      tokenOutput(out),
		ContextAttr: sc.attributes(),
		Expiry:      timestamp(sc.expiry),
	}, protocol.StatusContinueNeeded
}

// targetInfo builds the AV_PAIR list sent in CHALLENGE messages.
func (p *Provider) targetInfo() []byte {
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], Filetime(p.now()))
	return BuildTargetInfo([]AvPair{
		{ID: AvNbDomainName, Value: encodeUTF16(p.cfg.TargetName)},
		{ID: AvNbComputerName, Value: encodeUTF16(p.cfg.ComputerName)},
		{ID: AvTimestamp, Value: ts[:]},
	})
}

// validate checks an AUTHENTICATE message and installs session security.
func (p *Provider) validate(sc *securityContext, auth *AuthenticateMessage) protocol.Status {
	if auth.IsAnonymous() {
		if len(p.cfg.Users) > 0 {
			return protocol.StatusLogonDenied
		}
		sc.anonymous = true
		return protocol.StatusOK
	}

	user := p.lookupUser(auth.Username, auth.Domain)
	if user == nil {
		return protocol.StatusLogonDenied
	}
	baseKey, ok := verifyNTLMv2(user.NTHash, auth.Username, auth.Domain, sc.serverChallenge, auth.NtChallengeResponse)
	if !ok {
		return protocol.StatusLogonDenied
	}

	sc.flags &= auth.NegotiateFlags | FlagExtendedSecurity
	exported := baseKey
	if sc.flags.Has(FlagKeyExchange) {
		if len(auth.EncryptedRandomSessionKey) != 16 {
			return protocol.StatusInvalidToken
		}
		exported = rc4Once(baseKey, auth.EncryptedRandomSessionKey)
	}
	sc.user, sc.domain = auth.Username, auth.Domain
	sc.sec = newSessionSecurity(exported, sc.flags, false, 0, 0)
	return protocol.StatusOK
}

// =============================================================================
// Lifecycle
// =============================================================================

func (p *Provider) CompleteAuthToken(_ context.Context, req *protocol.CompleteAuthTokenRequest) (*protocol.CompleteAuthTokenResponse, protocol.Status) {
	if _, ok := p.contexts.get(req.Context); !ok {
		return nil, protocol.StatusInvalidHandle
	}
	return &protocol.CompleteAuthTokenResponse{}, protocol.StatusOK
}

func (p *Provider) DeleteSecurityContext(ctx context.Context, req *protocol.DeleteSecurityContextRequest) (*protocol.DeleteSecurityContextResponse, protocol.Status) {
	if _, ok := p.contexts.remove(req.Context); !ok {
		return nil, protocol.StatusInvalidHandle
	}
	logger.DebugCtx(ctx, "Context deleted", logger.Handle(req.Context.String()))
	return &protocol.DeleteSecurityContextResponse{}, protocol.StatusOK
}
