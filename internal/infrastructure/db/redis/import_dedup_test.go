package redis

import "testing"

func TestDecodeStored_PendingReservation(t *testing.T) {
	res, err := decodeStored([]byte(pendingMarker))
	if err != nil || res != nil {
		t.Fatalf("expected no result for a pending key, got %+v %v", res, err)
	}
}

func TestDecodeStored_FinishedImport(t *testing.T) {
	res, err := decodeStored([]byte(`{"inserted":3,"duplicates":1,"rejected":2,"errors":[{"row":4,"error":"rooms must be a whole number between 0 and 1000"}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res == nil || res.Inserted != 3 || res.Duplicates != 1 || res.Rejected != 2 || len(res.Errors) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Replayed {
		t.Fatalf("replay flag is set by the service, not the store")
	}
}

func TestDecodeStored_Garbage(t *testing.T) {
	if _, err := decodeStored([]byte("{not json")); err == nil {
		t.Fatalf("expected decode error")
	}
}
