package config

import "strings"

// MissingCredentialError is returned when the PDL API key is not set.
type MissingCredentialError struct {
	Var string
}

func (e *MissingCredentialError) Error() string {
	return "Failed to find a People Data Labs api key on this machine. " +
		"Please create an API Key, then store it as an environment variable called '" + e.Var + "'."
}

// ResolveAPIKey reads the API key from the environment on every call.
// Callers resolve it once and pass it to pdl.NewClient.
func ResolveAPIKey(getenv func(string) string) (string, error) {
	key := strings.TrimSpace(getenv(EnvAPIKey))
	if key == "" {
		return "", &MissingCredentialError{Var: EnvAPIKey}
	}
	return key, nil
}
