// SPDX-License-Identifier: Apache-2.0

package chihiros

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// randomMessageID picks a random valid message id
func randomMessageID(rng *rand.Rand) MessageID {
	id := MessageID{High: uint8(rng.Intn(256)), Low: uint8(rng.Intn(256))}
	if id.High == Sentinel {
		id.High++
	}
	if id.Low == Sentinel {
		id.Low++
	}
	return id
}

// TestFuzzEncoder_Invariants encodes random frames and verifies the
// structural invariants hold for every one of them
func TestFuzzEncoder_Invariants(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		cmdID := byte(rng.Intn(256))
		mode := byte(rng.Intn(256))
		id := randomMessageID(rng)
		params := make([]byte, rng.Intn(MaxFrameParams+1))
		rng.Read(params)

		frame, err := EncodeFrame(cmdID, mode, id, params)
		if err != nil {
			t.Fatalf("Round %d: unexpected encode error: %v", i, err)
		}

		if len(frame) != len(params)+frameOverhead {
			t.Errorf("Round %d: frame size %d, want %d", i, len(frame), len(params)+frameOverhead)
		}
		if int(frame.DeclaredLength()) != len(params)+5 {
			t.Errorf("Round %d: declared length %d, want %d", i, frame.DeclaredLength(), len(params)+5)
		}
		if sum := Checksum(frame[:len(frame)-1]); sum != frame.Checksum() {
			t.Errorf("Round %d: checksum does not verify", i)
		}
		if !frame.MessageID().Valid() {
			t.Errorf("Round %d: frame carries sentinel message id %s", i, frame.MessageID())
		}
		for j, p := range frame.Params() {
			if p == Sentinel {
				t.Errorf("Round %d: parameter %d is the sentinel byte", i, j)
			}
		}
	}
}

// TestFuzzEncoder_DecoderRoundTrip verifies every encoded frame survives
// the stream decoder unchanged
func TestFuzzEncoder_DecoderRoundTrip(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	d := NewStreamDecoder()
	for i := 0; i < rounds; i++ {
		params := make([]byte, rng.Intn(32))
		rng.Read(params)
		encoded, err := EncodeFrame(byte(rng.Intn(256)), byte(rng.Intn(256)), randomMessageID(rng), params)
		if err != nil {
			t.Fatalf("Round %d: encode error: %v", i, err)
		}

		var decoded Frame
		for _, b := range encoded {
			frame, err := d.Feed(b)
			if err != nil {
				t.Fatalf("Round %d: decode error: %v", i, err)
			}
			if frame != nil {
				decoded = frame
			}
		}
		if decoded == nil {
			t.Fatalf("Round %d: decoder did not produce a frame", i)
		}
		if decoded.String() != encoded.String() {
			t.Errorf("Round %d: round-trip mismatch: %s != %s", i, decoded, encoded)
		}
	}
}

// TestFuzzDecoder_RandomBytes feeds random bytes to the decoder
// and verifies it doesn't crash or panic
func TestFuzzDecoder_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewStreamDecoder()

		length := rng.Intn(512) + 1
		data := make([]byte, length)
		rng.Read(data)

		for _, b := range data {
			d.Feed(b)
		}
	}
}

// TestFuzzSequencer_NeverSentinel advances the sequencer from random
// starting points and verifies the sentinel never appears
func TestFuzzSequencer_NeverSentinel(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		id := randomMessageID(rng)
		steps := rng.Intn(1000) + 1
		for j := 0; j < steps; j++ {
			id = id.Next()
			if !id.Valid() {
				t.Fatalf("Round %d: sentinel after %d steps: %s", i, j, id)
			}
		}
	}
}

// TestFuzzValidator_RandomFrames validates random byte slices
// and verifies the validator never panics
func TestFuzzValidator_RandomFrames(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		data := make([]byte, rng.Intn(64))
		rng.Read(data)

		errs := ValidateFrame(Frame(data))
		if errs == nil {
			t.Errorf("Round %d: ValidateFrame returned nil slice", i)
		}
	}
}

// TestFuzzDose_RoundTrip converts random tenth-millilitre quantities
// through the float API and back
func TestFuzzDose_RoundTrip(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		tenths := rng.Intn(maxDoseTenths-minDoseTenths+1) + minDoseTenths
		ml := float64(tenths) / 10

		dose, err := SplitDose(ml)
		if err != nil {
			t.Fatalf("Round %d: SplitDose(%v) failed: %v", i, ml, err)
		}
		if dose.tenths() != tenths {
			t.Errorf("Round %d: %v mL became %d tenths, want %d", i, ml, dose.tenths(), tenths)
		}
	}
}

// TestFuzzParseDailyTotals_RandomPayloads verifies the totals parser
// never panics on arbitrary input
func TestFuzzParseDailyTotals_RandomPayloads(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		data := make([]byte, rng.Intn(40))
		rng.Read(data)
		ParseDailyTotals(data)
	}
}
