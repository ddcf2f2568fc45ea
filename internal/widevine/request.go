package widevine

import (
	"encoding/base64"
	"encoding/json"

	"github.com/pkg/errors"
)

const drmTypeWidevine = "WIDEVINE"

// KeyRequest is the body the key server decodes from the envelope. Field order
// is part of the signing contract: the server verifies the signature over the
// exact bytes carried in SignedEnvelope.Request.
type KeyRequest struct {
	ContentID string      `json:"content_id"`
	Policy    string      `json:"policy"`
	DRMTypes  []string    `json:"drm_types"`
	Tracks    []TrackSpec `json:"tracks"`
}

func NewKeyRequest(contentID, tracks, policy string) *KeyRequest {
	parsed := ParseTracks(tracks)
	specs := make([]TrackSpec, 0, len(parsed))

	for _, track := range parsed {
		specs = append(specs, TrackSpec{Type: track})
	}

	return &KeyRequest{
		ContentID: base64.StdEncoding.EncodeToString([]byte(contentID)),
		Policy:    policy,
		DRMTypes:  []string{drmTypeWidevine},
		Tracks:    specs,
	}
}

// Payload returns the canonical JSON text of the request.
func (r *KeyRequest) Payload() ([]byte, error) {
	payload, err := json.Marshal(r)

	if err != nil {
		return nil, errors.Wrap(err, "json format key request")
	}

	return payload, nil
}

type SignedEnvelope struct {
	Request   string `json:"request"`
	Signer    string `json:"signer"`
	Signature string `json:"signature,omitempty"`
}
