package ntlm

import (
	"errors"
	"fmt"

	"github.com/jcmturner/gofork/encoding/asn1"
	"github.com/jcmturner/gokrb5/v8/spnego"
)

// SPNEGO wrapping for the Negotiate package. Only the NTLM mechanism is
// offered or accepted. [RFC 4178]

var (
	// OIDNTLMSSP is the NTLM Security Support Provider mechanism.
	OIDNTLMSSP = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 311, 2, 2, 10}

	// OIDKerberosV5 is the standard Kerberos V5 mechanism.
	OIDKerberosV5 = asn1.ObjectIdentifier{1, 2, 840, 113554, 1, 2, 2}

	// OIDMSKerberosV5 is Microsoft's legacy Kerberos OID.
	OIDMSKerberosV5 = asn1.ObjectIdentifier{1, 2, 840, 48018, 1, 2, 2}
)

// NegState is the SPNEGO negotiation state carried in NegTokenResp.
type NegState int

const (
	NegStateAcceptCompleted  NegState = 0
	NegStateAcceptIncomplete NegState = 1
	NegStateReject           NegState = 2
	NegStateRequestMIC       NegState = 3
)

var (
	ErrInvalidToken    = errors.New("spnego: invalid token format")
	ErrUnsupportedMech = errors.New("spnego: unsupported mechanism")
	ErrNoMechToken     = errors.New("spnego: no mechanism token present")
)

// TokenType distinguishes NegTokenInit from NegTokenResp.
type TokenType int

const (
	TokenTypeInit TokenType = iota
	TokenTypeResp
)

// ParsedToken is the part of a SPNEGO token the provider needs.
type ParsedToken struct {
	Type          TokenType
	MechTypes     []asn1.ObjectIdentifier
	MechToken     []byte
	NegState      NegState
	SupportedMech asn1.ObjectIdentifier
}

// ParseSPNEGO decodes a NegTokenInit or NegTokenResp.
func ParseSPNEGO(data []byte) (*ParsedToken, error) {
	if len(data) < 2 {
		return nil, ErrInvalidToken
	}

	isInit, token, err := spnego.UnmarshalNegToken(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if isInit {
		initToken, ok := token.(spnego.NegTokenInit)
		if !ok {
			return nil, ErrInvalidToken
		}
		return &ParsedToken{
			Type:      TokenTypeInit,
			MechTypes: initToken.MechTypes,
			MechToken: initToken.MechTokenBytes,
		}, nil
	}

	respToken, ok := token.(spnego.NegTokenResp)
	if !ok {
		return nil, ErrInvalidToken
	}
	return &ParsedToken{
		Type:          TokenTypeResp,
		MechToken:     respToken.ResponseToken,
		NegState:      NegState(respToken.NegState),
		SupportedMech: respToken.SupportedMech,
	}, nil
}

// HasMechanism reports whether the init token offers oid.
func (p *ParsedToken) HasMechanism(oid asn1.ObjectIdentifier) bool {
	for _, mech := range p.MechTypes {
		if mech.Equal(oid) {
			return true
		}
	}
	return false
}

// HasNTLM reports whether the init token offers NTLMSSP.
func (p *ParsedToken) HasNTLM() bool {
	return p.HasMechanism(OIDNTLMSSP)
}

// ntlmToken extracts the NTLM message from a SPNEGO token. An init token
// must offer NTLM; a response token must not reject.
func (p *ParsedToken) ntlmToken() ([]byte, error) {
	if p.Type == TokenTypeInit && !p.HasNTLM() {
		return nil, ErrUnsupportedMech
	}
	if p.Type == TokenTypeResp && p.NegState == NegStateReject {
		return nil, fmt.Errorf("%w: rejected by peer", ErrInvalidToken)
	}
	if len(p.MechToken) == 0 {
		return nil, ErrNoMechToken
	}
	return p.MechToken, nil
}

// BuildInit wraps an initiator's first NTLM message in a NegTokenInit
// offering only NTLMSSP.
func BuildInit(mechToken []byte) ([]byte, error) {
	init := spnego.NegTokenInit{
		MechTypes:      []asn1.ObjectIdentifier{OIDNTLMSSP},
		MechTokenBytes: mechToken,
	}
	return init.Marshal()
}

// BuildResponse creates a NegTokenResp.
func BuildResponse(state NegState, mech asn1.ObjectIdentifier, responseToken []byte) ([]byte, error) {
	resp := spnego.NegTokenResp{
		NegState:      asn1.Enumerated(state),
		SupportedMech: mech,
		ResponseToken: responseToken,
	}
	return resp.Marshal()
}

// BuildAcceptIncomplete wraps a CHALLENGE for the Negotiate package.
func BuildAcceptIncomplete(responseToken []byte) ([]byte, error) {
	return BuildResponse(NegStateAcceptIncomplete, OIDNTLMSSP, responseToken)
}

// BuildAcceptComplete ends a successful Negotiate exchange.
func BuildAcceptComplete() ([]byte, error) {
	return BuildResponse(NegStateAcceptCompleted, OIDNTLMSSP, nil)
}

// BuildReject ends a failed Negotiate exchange.
func BuildReject() ([]byte, error) {
	return BuildResponse(NegStateReject, nil, nil)
}
