package utils

import (
	"fmt"
	"os"
	"strings"
)

// ReadSecret reads a secret from the standard Docker Secrets path, falling
// back to the upper-cased environment variable of the same name. Deployments
// without an orchestrator just export STEAM_API_KEY etc. directly.
func ReadSecret(secretName string) (string, error) {
	filePath := fmt.Sprintf("/run/secrets/%s", secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err == nil {
		secret := strings.TrimSpace(string(secretBytes))
		if secret == "" {
			return "", fmt.Errorf("secret file %s is empty", filePath)
		}
		return secret, nil
	}

	envName := strings.ToUpper(secretName)
	if secret := strings.TrimSpace(os.Getenv(envName)); secret != "" {
		return secret, nil
	}
	return "", fmt.Errorf("secret %s not found: no file at %s and env %s is empty", secretName, filePath, envName)
}

// ReadOptionalSecret behaves like ReadSecret but returns "" when the secret
// is simply absent.
func ReadOptionalSecret(secretName string) string {
	secret, err := ReadSecret(secretName)
	if err != nil {
		return ""
	}
	return secret
}
