package configstore

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// The RemoteKV wire shape is a structpb.Struct with two fields:
//
//	version_token (string) — opaque, compared byte-for-byte by HasChanged
//	spec_json     (string) — the ConfigSpec, JSON-encoded
//
// Nesting the ConfigSpec as a JSON string field (rather than translating
// every field into structpb.Value trees) keeps the remote service's
// contract stable across ConfigSpec schema changes: only spec_json's
// payload needs to change, not the RPC's wire shape.

func decodeRemoteSpec(s *structpb.Struct) (*ConfigSpec, string, error) {
	tokenVal, ok := s.Fields["version_token"]
	if !ok {
		return nil, "", fmt.Errorf("configstore.RemoteKV: response missing version_token")
	}
	specVal, ok := s.Fields["spec_json"]
	if !ok {
		return nil, "", fmt.Errorf("configstore.RemoteKV: response missing spec_json")
	}

	var spec ConfigSpec
	if err := json.Unmarshal([]byte(specVal.GetStringValue()), &spec); err != nil {
		return nil, "", fmt.Errorf("configstore.RemoteKV: decode spec_json: %w", err)
	}
	return &spec, tokenVal.GetStringValue(), nil
}

// encodeRemoteSpec builds the wire Struct a remote_kv service would
// return for the given spec and version token. Used by tests to exercise
// the RemoteKV backend without a live service.
func encodeRemoteSpec(spec *ConfigSpec, versionToken string) (*structpb.Struct, error) {
	data, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("configstore: encode spec: %w", err)
	}
	return structpb.NewStruct(map[string]any{
		"version_token": versionToken,
		"spec_json":     string(data),
	})
}
