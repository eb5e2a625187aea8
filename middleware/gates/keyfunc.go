package gates

import (
	"fmt"
	"log"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/goliatone/go-errors"
	"github.com/golang-jwt/jwt/v5"
	auth "github.com/urvue/go-auth"
)

// SigningKey holds a verification key and the algorithm it is valid for.
// Leave JWTAlg empty to skip the algorithm check (not recommended).
type SigningKey struct {
	JWTAlg string
	Key    any
}

// KeySource configures where a KeyfuncValidator finds verification keys.
// At least one of SigningKey, SigningKeys, or JWKSetURLs must be set.
type KeySource struct {
	// SigningKey verifies every token regardless of "kid".
	SigningKey SigningKey

	// SigningKeys verifies tokens by their "kid" header.
	SigningKeys map[string]SigningKey

	// JWKSetURLs are polled in the background; keys rotate without restart.
	JWKSetURLs []string

	// KeyFunc overrides everything above when set.
	KeyFunc jwt.Keyfunc
}

// KeyfuncValidator is a TokenValidator for deployments where session tokens
// are verified against rotating or multi-tenant key sets rather than the
// single shared secret auth.TokenServiceImpl uses.
type KeyfuncValidator struct {
	keyFunc  jwt.Keyfunc
	issuer   string
	audience string
}

// NewKeyfuncValidator resolves the key source into a jwt.Keyfunc and wraps it
// as a TokenValidator. It panics on misconfiguration, same as the gates.
func NewKeyfuncValidator(src KeySource, issuer, audience string) *KeyfuncValidator {
	kf := src.KeyFunc
	if kf == nil {
		if len(src.SigningKeys) > 0 || len(src.JWKSetURLs) > 0 {
			var givenKeys map[string]keyfunc.GivenKey
			if src.SigningKeys != nil {
				givenKeys = make(map[string]keyfunc.GivenKey, len(src.SigningKeys))
				for kid, key := range src.SigningKeys {
					givenKeys[kid] = keyfunc.NewGivenCustom(key.Key, keyfunc.GivenKeyOptions{
						Algorithm: key.JWTAlg,
					})
				}
			}
			if len(src.JWKSetURLs) > 0 {
				var err error
				kf, err = multiKeyfunc(givenKeys, src.JWKSetURLs)
				if err != nil {
					panic("Failed to create keyfunc from JWK Set URL: " + err.Error())
				}
			} else {
				kf = keyfunc.NewGiven(givenKeys).Keyfunc
			}
		} else if src.SigningKey.Key != nil {
			kf = signingKeyFunc(src.SigningKey)
		} else {
			panic("AUTH: gates configuration: At least one of the following is required: KeyFunc, JWKSetURLs, SigningKeys, or SigningKey.")
		}
	}
	return &KeyfuncValidator{keyFunc: kf, issuer: issuer, audience: audience}
}

// Validate parses the token with the resolved key set and returns its
// session claims, mapping failures onto the shared taxonomy.
func (v *KeyfuncValidator) Validate(token string) (*auth.SessionClaims, error) {
	claims := &auth.SessionClaims{}

	opts := []jwt.ParserOption{}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	parsed, err := jwt.ParseWithClaims(token, claims, v.keyFunc, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, auth.ErrCredentialExpired
		}
		return nil, fmt.Errorf("%w: %v", auth.ErrCredentialInvalid, err)
	}
	if !parsed.Valid || claims.UID == "" {
		return nil, auth.ErrCredentialInvalid
	}
	return claims, nil
}

func multiKeyfunc(givenKeys map[string]keyfunc.GivenKey, jwkSetURLs []string) (jwt.Keyfunc, error) {
	opts := keyfuncOptions(givenKeys)
	m := make(map[string]keyfunc.Options, len(jwkSetURLs))
	for _, url := range jwkSetURLs {
		m[url] = opts
	}
	mopts := keyfunc.MultipleOptions{
		KeySelector: keyfunc.KeySelectorFirst,
	}
	multi, err := keyfunc.GetMultiple(m, mopts)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWK Set URLs: %w", err)
	}
	return multi.Keyfunc, nil
}

func keyfuncOptions(givenKeys map[string]keyfunc.GivenKey) keyfunc.Options {
	return keyfunc.Options{
		GivenKeys: givenKeys,
		RefreshErrorHandler: func(err error) {
			log.Printf("failed to do a background refresh of JWK Set: %s", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	}
}

func signingKeyFunc(key SigningKey) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if key.JWTAlg != "" {
			alg, ok := token.Header["alg"].(string)
			if !ok {
				return nil, fmt.Errorf("unexpected JWT signing method: expected %q got: missing json type", key.JWTAlg)
			}
			if alg != key.JWTAlg {
				return nil, fmt.Errorf("unexpected jwt signing method: expected: %q: got: %q", key.JWTAlg, alg)
			}
		}
		return key.Key, nil
	}
}
