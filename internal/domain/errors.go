// Package domain contains the core business entities and value objects.
package domain

import "errors"

// Sentinel errors for the gateway core. Callers match them with errors.Is.
var (
	// ErrEmptyCredentialPool is returned when a key rotator is constructed
	// without any usable credentials. Fatal at startup.
	ErrEmptyCredentialPool = errors.New("credential pool must contain at least one key")

	// ErrNoCurrentCredential is returned by Current before the first
	// rotation has drawn a credential.
	ErrNoCurrentCredential = errors.New("no credential has been drawn yet")

	// ErrUnknownProvider is returned when a request names a provider that
	// is absent from configuration.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrUnknownAdapterKind is returned when a provider descriptor names
	// an adapter kind outside the compiled-in set.
	ErrUnknownAdapterKind = errors.New("unknown adapter kind")

	// ErrAllCredentialsExhausted is returned when every credential in a
	// pool failed with a transient error within one request. The last
	// transient error is attached for diagnostics.
	ErrAllCredentialsExhausted = errors.New("all credentials exhausted")

	// ErrEmulationDecode is returned in strict emulation mode when the
	// model's reply cannot be coerced into the tool-call output contract.
	ErrEmulationDecode = errors.New("tool emulation decode failed")
)
