package domain

import "testing"

// FuzzParseBucketlistID checks parsing never panics and accepted values
// round-trip through String.
func FuzzParseBucketlistID(f *testing.F) {
	f.Add("")
	f.Add("1")
	f.Add("0")
	f.Add("-1")
	f.Add("9223372036854775807")
	f.Add("'; DROP TABLE bucketlists;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseBucketlistID(input)
		if err != nil {
			return
		}
		if id.IsNil() {
			t.Errorf("accepted non-positive id %d", id)
		}
		roundTrip, err := ParseBucketlistID(id.String())
		if err != nil {
			t.Errorf("valid ID failed round-trip: %v", err)
		}
		if roundTrip != id {
			t.Error("round-trip changed ID value")
		}
	})
}
