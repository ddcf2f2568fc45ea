package widevine

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const keyIDSize = 16

// KeyResponse is the decoded key server payload. Its schema is owned by the
// key server, so the raw JSON is kept and read on demand.
type KeyResponse struct {
	raw json.RawMessage
}

// TrackKey is one entry of the tracks array of a Widevine key server answer.
type TrackKey struct {
	Type  Track
	KeyID []byte
	Key   []byte
	PSSH  []byte
}

// KeyIDHex returns the key id as 32 lowercase hex characters.
func (k TrackKey) KeyIDHex() string {
	return hex.EncodeToString(k.KeyID)
}

func decodeResponse(body []byte) (*KeyResponse, error) {
	if !gjson.ValidBytes(body) {
		return nil, &DecodeError{Op: "json parse body", Err: errors.Errorf("invalid json: %.64q", body)}
	}

	field := gjson.GetBytes(body, "response")

	if field.Type != gjson.String {
		return nil, &DecodeError{Op: "json parse body", Err: errors.New("no response field received")}
	}

	payload, err := base64.StdEncoding.DecodeString(field.Str)

	if err != nil {
		return nil, &DecodeError{Op: "base64 decode response", Err: err}
	}

	if !json.Valid(payload) {
		return nil, &DecodeError{Op: "json parse response", Err: errors.Errorf("invalid json: %.64q", payload)}
	}

	return &KeyResponse{raw: payload}, nil
}

// Raw returns the decoded JSON text.
func (r *KeyResponse) Raw() json.RawMessage {
	return r.raw
}

// Decode unmarshals the decoded JSON into v.
func (r *KeyResponse) Decode(v interface{}) error {
	return json.Unmarshal(r.raw, v)
}

// Status returns the top-level status string, "OK" on success for the
// Widevine cloud key server.
func (r *KeyResponse) Status() string {
	return gjson.GetBytes(r.raw, "status").String()
}

// Keys reads tracks[].{type,key_id,key,pssh} from the response. Only the
// Widevine PSSH data is kept. Entries with an unknown type are skipped; a
// known entry without a 16 byte key id is a *DecodeError.
func (r *KeyResponse) Keys() ([]TrackKey, error) {
	var keys []TrackKey
	var err error

	gjson.GetBytes(r.raw, "tracks").ForEach(func(_, track gjson.Result) bool {
		key := TrackKey{Type: Track(track.Get("type").String())}

		if !key.Type.Valid() {
			return true
		}

		if key.KeyID, err = decodeField(track, "key_id"); err != nil {
			return false
		}

		if len(key.KeyID) != keyIDSize {
			err = &DecodeError{Op: "read key_id", Err: errors.Errorf("%s track key id is %d bytes, want %d", key.Type, len(key.KeyID), keyIDSize)}
			return false
		}

		if key.Key, err = decodeField(track, "key"); err != nil {
			return false
		}

		track.Get("pssh").ForEach(func(_, pssh gjson.Result) bool {
			if pssh.Get("drm_type").String() != drmTypeWidevine {
				return true
			}

			key.PSSH, err = decodeField(pssh, "data")
			return false
		})

		if err != nil {
			return false
		}

		keys = append(keys, key)
		return true
	})

	if err != nil {
		return nil, err
	}

	return keys, nil
}

func decodeField(result gjson.Result, path string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(result.Get(path).String())

	if err != nil {
		return nil, &DecodeError{Op: "base64 decode " + path, Err: err}
	}

	return data, nil
}
