package model

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestPoolSnapshotJSONFieldNames(t *testing.T) {
	snap := PoolSnapshot{
		TokenA:     common.HexToAddress("0x1111111111111111111111111111111111111111"),
		TokenB:     common.HexToAddress("0x2222222222222222222222222222222222222222"),
		ReserveA:   13400,
		ReserveB:   342,
		DecimalsA:  6,
		DecimalsB:  9,
		LPSupply:   1300,
		LPDecimals: 9,
	}

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	for _, key := range []string{"token_a", "token_b", "reserve_a", "reserve_b", "decimals_a", "decimals_b", "lp_supply", "lp_decimals"} {
		if _, ok := fields[key]; !ok {
			t.Fatalf("missing field %s in %s", key, data)
		}
	}

	var decoded PoolSnapshot
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !reflect.DeepEqual(snap, decoded) {
		t.Fatalf("snapshot mismatch: %+v != %+v", snap, decoded)
	}
}

func TestPoolSnapshotSide(t *testing.T) {
	snap := PoolSnapshot{ReserveA: 10, ReserveB: 20, DecimalsA: 6, DecimalsB: 9, LPSupply: 1}

	in, out, ok := snap.Side(BToA)
	if !ok {
		t.Fatalf("b_to_a should be valid")
	}
	if in.Reserve != 20 || in.Decimals != 9 || out.Reserve != 10 || out.Decimals != 6 {
		t.Fatalf("unexpected sides: in=%+v out=%+v", in, out)
	}

	if _, _, ok := snap.Side(Direction(0)); ok {
		t.Fatalf("zero direction should be rejected")
	}
}

func TestPoolSnapshotView(t *testing.T) {
	snap := PoolSnapshot{ReserveA: 1_500_000, ReserveB: 2_000_000_000, DecimalsA: 6, DecimalsB: 9, LPSupply: 1_732_050_807, LPDecimals: 9}

	view := snap.View()
	if view.ReserveA != "1.5" || view.ReserveB != "2" || view.LPSupply != "1.732050807" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.TokenA != "" {
		t.Fatalf("token fields should be empty without identifiers")
	}
}

func TestDirectionText(t *testing.T) {
	req := SwapRequest{AmountIn: 5, Direction: BToA}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"amount_in":5,"direction":"b_to_a"}` {
		t.Fatalf("unexpected encoding: %s", data)
	}

	var decoded SwapRequest
	if err := json.Unmarshal([]byte(`{"amount_in":7,"direction":"A-to-B"}`), &decoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Direction != AToB || decoded.AmountIn != 7 {
		t.Fatalf("unexpected request: %+v", decoded)
	}

	if _, err := json.Marshal(SwapRequest{AmountIn: 1}); err == nil {
		t.Fatalf("zero direction should not encode")
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Fatalf("expected parse error")
	}
	if AToB.Reverse() != BToA || BToA.Reverse() != AToB {
		t.Fatalf("reverse mismatch")
	}
}

func TestMovementJSONRoundTrip(t *testing.T) {
	original := Movement{
		Pool:       "0xabc",
		Op:         "swap",
		Seq:        3,
		Account:    "0x1111111111111111111111111111111111111111",
		Token:      "0x2222222222222222222222222222222222222222",
		Kind:       MovementCredit,
		Amount:     90,
		RecordedAt: "2024-01-01T00:00:00Z",
	}

	b, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded Movement
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(original, decoded) {
		t.Fatalf("round-trip mismatch: %+v != %+v", original, decoded)
	}
}
