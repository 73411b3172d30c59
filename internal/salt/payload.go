package salt

import (
	"encoding/base64"
	"encoding/json"
)

type payload struct {
	Version    int       `json:"version"`
	Signing    urlBase64 `json:"signing"`
	Encryption urlBase64 `json:"encryption"`
}

// urlBase64 is raw URL-safe base64 in JSON, which keeps salt files readable by older builds.
type urlBase64 []byte

func (u urlBase64) MarshalJSON() ([]byte, error) {
	return json.Marshal(base64.RawURLEncoding.EncodeToString(u))
}

func (u *urlBase64) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	decoded, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return err
	}

	*u = decoded
	return nil
}
