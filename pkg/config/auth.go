package config

import (
	"time"
)

// IdP is the identity provider whose JWKS signs cart user tokens.
type IdP struct {
	JwksURL     string        `koanf:"jwksurl"`
	Issuer      string        `koanf:"issuer"`
	ClientID    string        `koanf:"clientid"`
	MinInterval time.Duration `koanf:"mininterval"`
}

func (c *IdP) String() string {
	return NewSection("IdP").
		Field("jwksurl", c.JwksURL).
		Field("issuer", c.Issuer).
		Field("clientid", c.ClientID).
		Field("mininterval", c.MinInterval).
		String()
}

func (c *IdP) Validate() error {
	if err := requireValue("auth.idp.jwksurl", c.JwksURL); err != nil {
		return err
	}
	if err := requireValue("auth.idp.issuer", c.Issuer); err != nil {
		return err
	}
	if err := requireValue("auth.idp.clientid", c.ClientID); err != nil {
		return err
	}
	return requirePositive("auth.idp.mininterval", c.MinInterval)
}

// KeycloakConfig is the confidential client used for token introspection.
type KeycloakConfig struct {
	URL          string `koanf:"url"`
	Realm        string `koanf:"realm"`
	ClientID     string `koanf:"clientid"`
	ClientSecret string `koanf:"clientsecret"`
}

func (c *KeycloakConfig) String() string {
	return NewSection("Keycloak").
		Field("url", c.URL).
		Field("realm", c.Realm).
		Field("clientid", c.ClientID).
		Secret("clientsecret", c.ClientSecret).
		String()
}

func (c *KeycloakConfig) Validate() error {
	for key, value := range map[string]string{
		"auth.keycloak.url":          c.URL,
		"auth.keycloak.realm":        c.Realm,
		"auth.keycloak.clientid":     c.ClientID,
		"auth.keycloak.clientsecret": c.ClientSecret,
	} {
		if err := requireValue(key, value); err != nil {
			return err
		}
	}
	return nil
}
