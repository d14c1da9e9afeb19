// Package ntlm is the reference NetSSPI provider. It serves the NTLM and
// Negotiate (SPNEGO-wrapped NTLM) packages on both sides of a handshake:
// the initiator computes NTLMv2 responses from an acquired identity, the
// acceptor validates them against configured accounts. Established contexts
// support signing, sealing, export and import.
package ntlm

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/netsspi/internal/logger"
	"github.com/marmos91/netsspi/pkg/dispatch"
	"github.com/marmos91/netsspi/pkg/metrics"
	"github.com/marmos91/netsspi/pkg/protocol"
	"github.com/marmos91/netsspi/pkg/wire"
)

// Package names served by the provider.
const (
	PackageNTLM      = "NTLM"
	PackageNegotiate = "Negotiate"
)

// DefaultTargetName is advertised in CHALLENGE messages when none is configured.
const DefaultTargetName = "NETSSPI"

// User is an account the acceptor side validates AUTHENTICATE messages
// against. An empty Domain matches any domain.
type User struct {
	Username string
	Domain   string
	NTHash   [NTHashSize]byte
}

// NewUser returns a User whose NT hash is computed from password.
func NewUser(username, domain, password string) User {
	return User{Username: username, Domain: domain, NTHash: NTHash(password)}
}

// Config configures the reference provider.
type Config struct {
	// Packages restricts the served packages by name. Empty serves both.
	Packages []string

	// TargetName is the NetBIOS domain advertised to initiators.
	TargetName string

	// ComputerName is the NetBIOS computer name advertised to initiators and
	// sent as the workstation by the initiator side.
	ComputerName string

	// Users are the accounts the acceptor side accepts. With no users only
	// anonymous logons succeed.
	Users []User

	// Lifetime bounds credential and context expiry. Zero means they never
	// expire.
	Lifetime time.Duration

	// Metrics is optional.
	Metrics metrics.ProviderMetrics
}

// packageDef is one security package the provider serves.
type packageDef struct {
	info      protocol.PackageInfo
	negotiate bool
}

func (d *packageDef) name() string {
	return d.info.Name.Text()
}

// Package capability flags as reported by Windows for the two packages.
const (
	capabilitiesNTLM      = 0x00082B37
	capabilitiesNegotiate = 0x00083BB3
)

func defaultPackages() []*packageDef {
	return []*packageDef{
		{
			info: protocol.PackageInfo{
				Capabilities: capabilitiesNegotiate,
				Version:      1,
				RPCID:        9,
				MaxToken:     48256,
				Name:         wire.NewString(PackageNegotiate),
				Comment:      wire.NewString("Microsoft Package Negotiator"),
			},
			negotiate: true,
		},
		{
			info: protocol.PackageInfo{
				Capabilities: capabilitiesNTLM,
				Version:      1,
				RPCID:        10,
				MaxToken:     2888,
				Name:         wire.NewString(PackageNTLM),
				Comment:      wire.NewString("NTLM Security Package"),
			},
		},
	}
}

// selectPackages returns the default packages named in names, or all of
// them when names is empty.
func selectPackages(names []string) []*packageDef {
	all := defaultPackages()
	if len(names) == 0 {
		return all
	}
	var out []*packageDef
	for _, pkg := range all {
		for _, n := range names {
			if strings.EqualFold(n, pkg.name()) {
				out = append(out, pkg)
				break
			}
		}
	}
	return out
}

// credential is the provider side of a credential handle.
type credential struct {
	mu        sync.Mutex
	pkg       *packageDef
	use       uint32
	user      string
	domain    string
	ntHash    [NTHashSize]byte
	hasSecret bool
	expiry    time.Time
}

// setIdentity stores the NT hash of id's password and wipes the password.
func (c *credential) setIdentity(id *wire.AuthIdentity) {
	c.user = id.User.Text()
	c.domain = id.Domain.Text()
	c.ntHash = NTHash(id.Password.Text())
	c.hasSecret = true
	id.Clear()
}

func (c *credential) anonymous() bool {
	return !c.hasSecret && c.user == ""
}

// Provider is a dispatch.Provider serving the NTLM and Negotiate packages.
// Credential and context handles are scoped to the connection that created
// them and released when it closes.
type Provider struct {
	// ApplyControlToken is not supported by NTLM.
	dispatch.UnimplementedProvider

	cfg         Config
	packages    []*packageDef
	credentials *handleTable[*credential]
	contexts    *handleTable[*securityContext]
	now         func() time.Time
}

var (
	_ dispatch.Provider          = (*Provider)(nil)
	_ dispatch.ConnectionCleaner = (*Provider)(nil)
)

// New returns a Provider for cfg.
func New(cfg Config) *Provider {
	if cfg.TargetName == "" {
		cfg.TargetName = DefaultTargetName
	}
	if cfg.ComputerName == "" {
		cfg.ComputerName = cfg.TargetName
	}
	return &Provider{
		cfg:         cfg,
		packages:    selectPackages(cfg.Packages),
		credentials: newHandleTable[*credential](func(n int) { metrics.SetHandles(cfg.Metrics, "credential", n) }),
		contexts:    newHandleTable[*securityContext](func(n int) { metrics.SetHandles(cfg.Metrics, "context", n) }),
		now:         time.Now,
	}
}

func (p *Provider) lookupPackage(name string) *packageDef {
	for _, pkg := range p.packages {
		if strings.EqualFold(pkg.name(), name) {
			return pkg
		}
	}
	return nil
}

func (p *Provider) lookupUser(username, domain string) *User {
	for i := range p.cfg.Users {
		u := &p.cfg.Users[i]
		if !strings.EqualFold(u.Username, username) {
			continue
		}
		if u.Domain == "" || strings.EqualFold(u.Domain, domain) {
			return u
		}
	}
	return nil
}

// expiry returns the expiry for an object created now.
func (p *Provider) expiry() time.Time {
	if p.cfg.Lifetime <= 0 {
		return time.Time{}
	}
	return p.now().Add(p.cfg.Lifetime)
}

var neverExpires = wire.TimestampFromInt64(math.MaxInt64)

// timestamp encodes t as a FILETIME, with the zero time meaning never.
func timestamp(t time.Time) wire.Timestamp {
	if t.IsZero() {
		return neverExpires
	}
	return wire.TimestampFromInt64(int64(Filetime(t)))
}

// CleanupConnection releases every handle created on connectionID.
func (p *Provider) CleanupConnection(ctx context.Context, connectionID string) {
	creds := p.credentials.removeOwner(connectionID)
	ctxs := p.contexts.removeOwner(connectionID)
	if creds+ctxs > 0 {
		logger.DebugCtx(ctx, "Released connection handles",
			logger.ConnectionID(connectionID),
			"credentials", creds,
			"contexts", ctxs)
	}
}

// =============================================================================
// Packages
// =============================================================================

func (p *Provider) EnumerateSecurityPackages(context.Context, *protocol.EnumerateSecurityPackagesRequest) (*protocol.EnumerateSecurityPackagesResponse, protocol.Status) {
	resp := &protocol.EnumerateSecurityPackagesResponse{
		Packages: make([]protocol.PackageInfo, 0, len(p.packages)),
	}
	for _, pkg := range p.packages {
		resp.Packages = append(resp.Packages, pkg.info)
	}
	return resp, protocol.StatusOK
}

func (p *Provider) QuerySecurityPackageInfo(_ context.Context, req *protocol.QuerySecurityPackageInfoRequest) (*protocol.QuerySecurityPackageInfoResponse, protocol.Status) {
	pkg := p.lookupPackage(req.PackageName.Text())
	if pkg == nil {
		return nil, protocol.StatusSecPkgNotFound
	}
	return &protocol.QuerySecurityPackageInfoResponse{PackageInfo: pkg.info}, protocol.StatusOK
}

// =============================================================================
// Credentials
// =============================================================================

func (p *Provider) AcquireCredentialsHandle(ctx context.Context, req *protocol.AcquireCredentialsHandleRequest) (*protocol.AcquireCredentialsHandleResponse, protocol.Status) {
	pkg := p.lookupPackage(req.Package.Text())
	if pkg == nil {
		return nil, protocol.StatusSecPkgNotFound
	}
	if req.CredentialUse&protocol.CredentialUseBoth == 0 {
		return nil, protocol.StatusInvalidParameter
	}

	cred := &credential{
		pkg:    pkg,
		use:    req.CredentialUse & protocol.CredentialUseBoth,
		expiry: p.expiry(),
	}
	if req.Identity != nil {
		cred.setIdentity(req.Identity)
	}

	h := p.credentials.add(dispatch.ConnectionID(ctx), cred)
	logger.DebugCtx(ctx, "Credential acquired",
		logger.Package(pkg.name()),
		logger.Handle(h.String()),
		logger.Username(cred.user),
		logger.Domain(cred.domain))

	return &protocol.AcquireCredentialsHandleResponse{
		Credential: h,
		Expiry:     timestamp(cred.expiry),
	}, protocol.StatusOK
}

func (p *Provider) AddCredentials(_ context.Context, req *protocol.AddCredentialsRequest) (*protocol.AddCredentialsResponse, protocol.Status) {
	cred, ok := p.credentials.get(req.Credential)
	if !ok {
		return nil, protocol.StatusInvalidHandle
	}
	if name := req.Package.Text(); name != "" && !strings.EqualFold(name, cred.pkg.name()) {
		return nil, protocol.StatusSecPkgNotFound
	}

	cred.mu.Lock()
	defer cred.mu.Unlock()
	cred.use |= req.CredentialUse & protocol.CredentialUseBoth
	if req.Identity != nil {
		cred.setIdentity(req.Identity)
	}
	return &protocol.AddCredentialsResponse{Expiry: timestamp(cred.expiry)}, protocol.StatusOK
}

func (p *Provider) QueryCredentialsAttributes(_ context.Context, req *protocol.QueryCredentialsAttributesRequest) (*protocol.QueryCredentialsAttributesResponse, protocol.Status) {
	cred, ok := p.credentials.get(req.Credential)
	if !ok {
		return nil, protocol.StatusInvalidHandle
	}

	cred.mu.Lock()
	defer cred.mu.Unlock()
	switch req.Attribute {
	case protocol.AttrNames:
		return &protocol.QueryCredentialsAttributesResponse{
			Buffer: []byte(accountName(cred.domain, cred.user, cred.anonymous())),
		}, protocol.StatusOK
	case protocol.AttrLifespan:
		return &protocol.QueryCredentialsAttributesResponse{
			Buffer: encodeLifespan(time.Time{}, cred.expiry),
		}, protocol.StatusOK
	default:
		return nil, protocol.StatusUnsupportedFunction
	}
}

func (p *Provider) FreeCredentialsHandle(ctx context.Context, req *protocol.FreeCredentialsHandleRequest) (*protocol.FreeCredentialsHandleResponse, protocol.Status) {
	if _, ok := p.credentials.remove(req.Credential); !ok {
		return nil, protocol.StatusInvalidHandle
	}
	logger.DebugCtx(ctx, "Credential released", logger.Handle(req.Credential.String()))
	return &protocol.FreeCredentialsHandleResponse{}, protocol.StatusOK
}

// anonymousAccount is the name reported for anonymous logons.
const anonymousAccount = `NT AUTHORITY\ANONYMOUS LOGON`

func accountName(domain, user string, anonymous bool) string {
	if anonymous {
		return anonymousAccount
	}
	if domain == "" {
		return user
	}
	return domain + `\` + user
}
