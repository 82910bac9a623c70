package cmn

import jsoniter "github.com/json-iterator/go"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MustMarshal panics on failure; used only for values whose shape is
// controlled entirely by this module (job records, token payloads) where a
// marshal error indicates a programming mistake, not bad input.
func MustMarshal(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// MarshalIndent pretty-prints v, for documents written out to the scratch
// directory (e.g. dataset schema files) rather than sent over the wire.
func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return json.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
