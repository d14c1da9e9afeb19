package config

import (
	"fmt"
	"strings"

	"github.com/marmos91/netsspi/pkg/provider/ntlm"
)

// NTLMConfig converts the provider section into the reference provider's
// configuration, hashing plain passwords on the way.
func (c *ProviderConfig) NTLMConfig() (ntlm.Config, error) {
	users := make([]ntlm.User, 0, len(c.Users))
	for i := range c.Users {
		user, err := convertUserConfig(&c.Users[i])
		if err != nil {
			return ntlm.Config{}, fmt.Errorf("invalid user %q: %w", c.Users[i].Username, err)
		}
		users = append(users, user)
	}

	return ntlm.Config{
		Packages:     c.Packages,
		TargetName:   c.TargetName,
		ComputerName: c.ComputerName,
		Users:        users,
		Lifetime:     c.Lifetime,
	}, nil
}

// convertUserConfig converts UserConfig to ntlm.User.
func convertUserConfig(uc *UserConfig) (ntlm.User, error) {
	if uc.NTHash == "" {
		return ntlm.NewUser(uc.Username, uc.Domain, uc.Password), nil
	}
	hash, err := ntlm.ParseNTHash(strings.TrimSpace(uc.NTHash))
	if err != nil {
		return ntlm.User{}, err
	}
	return ntlm.User{Username: uc.Username, Domain: uc.Domain, NTHash: hash}, nil
}
