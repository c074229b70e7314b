package config

import (
	"fmt"
	"net/url"
	"time"
)

// DefaultCartCollection is the Firestore collection holding one document per user.
const DefaultCartCollection = "carts"

// RemoteHTTPConfig is the backend serving the signed-in user's cart.
type RemoteHTTPConfig struct {
	BaseURL string        `koanf:"baseurl"`
	Timeout time.Duration `koanf:"timeout"`
}

func (c *RemoteHTTPConfig) String() string {
	return NewSection("Remote HTTP").
		Field("baseurl", c.BaseURL).
		Field("timeout", c.Timeout).
		String()
}

func (c *RemoteHTTPConfig) Validate() error {
	if err := requireValue("remote.http.baseurl", c.BaseURL); err != nil {
		return err
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("remote.http.baseurl is not a valid URL: %q", c.BaseURL)
	}
	return requirePositive("remote.http.timeout", c.Timeout)
}

// CircuitBreakerConfig trips the cart backend breaker.
// It opens after ConsecutiveFailures failures in a row, or when the failure
// rate over more than ConsecutiveFailures requests exceeds ErrorRatePercent.
type CircuitBreakerConfig struct {
	ConsecutiveFailures uint32        `koanf:"consecutivefailures"`
	ErrorRatePercent    int           `koanf:"errorratepercent"`
	OpenTimeout         time.Duration `koanf:"opentimeout"`
}

func (c *CircuitBreakerConfig) String() string {
	return NewSection("Circuit Breaker").
		Field("consecutivefailures", c.ConsecutiveFailures).
		Field("errorratepercent", c.ErrorRatePercent).
		Field("opentimeout", c.OpenTimeout).
		String()
}

func (c *CircuitBreakerConfig) Validate() error {
	if c.ConsecutiveFailures == 0 {
		return fmt.Errorf("remote.circuitbreaker.consecutivefailures must be greater than 0")
	}
	if c.ErrorRatePercent < 0 || c.ErrorRatePercent > 100 {
		return fmt.Errorf("remote.circuitbreaker.errorratepercent must be between 0 and 100")
	}
	return requirePositive("remote.circuitbreaker.opentimeout", c.OpenTimeout)
}

// FirestoreConfig locates the user cart documents.
type FirestoreConfig struct {
	ProjectID       string `koanf:"projectid"`
	Collection      string `koanf:"collection"`
	CredentialsFile string `koanf:"credentialsfile"`
}

func (c *FirestoreConfig) String() string {
	return NewSection("Firestore").
		Field("projectid", c.ProjectID).
		Field("collection", c.Collection).
		Field("credentialsfile", c.CredentialsFile).
		String()
}

func (c *FirestoreConfig) Validate() error {
	if err := requireValue("remote.firestore.projectid", c.ProjectID); err != nil {
		return err
	}
	if c.Collection == "" {
		c.Collection = DefaultCartCollection
	}
	return nil
}
