package protocol

import "testing"

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrProtoBadRequest,
		ErrBadRequest,
		ErrNotFound,
		ErrSchema,
		ErrClosed,
		ErrInternal,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestIsRequest(t *testing.T) {
	for _, ty := range []string{TypeSet, TypeGet, TypeUpdate, TypeDelete, TypeSub, TypeSubCol, TypeUnsub} {
		if !IsRequest(ty) {
			t.Fatalf("%s not a request", ty)
		}
	}
	if IsRequest(TypeEvent) || IsRequest(TypeHello) {
		t.Fatalf("server messages classified as requests")
	}
}
