package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/archivesurmer-backend/pkg/errors"
)

type samplePayload struct {
	Email string `json:"email" validate:"required,email"`
	Title string `json:"title" validate:"max=5"`
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"nope","title":"too long"}`))
	var payload samplePayload
	err := DecodeJSONBody(req, &payload)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be a valid email", details["email"])
	assert.Equal(t, "must be at most 5", details["title"])
}

func TestDecodeJSONBodyRejectsUnknownFieldsAndOversize(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"a@b.co","extra":1}`))
	var payload samplePayload
	assert.True(t, pkgerrors.IsCode(DecodeJSONBody(req, &payload), pkgerrors.CodeValidation))

	req = httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"a@b.co"}`))
	assert.True(t, pkgerrors.IsCode(DecodeJSONBodyLimit(req, &payload, 4), pkgerrors.CodeValidation))

	req = httptest.NewRequest("POST", "/", strings.NewReader(""))
	assert.True(t, pkgerrors.IsCode(DecodeJSONBody(req, &payload), pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyTypeMismatchNamesField(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"a@b.co","title":7}`))
	var payload samplePayload
	err := DecodeJSONBody(req, &payload)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be a string", details["title"])
}

func TestDecodeJSONBodyRejectsTrailingValues(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"a@b.co"}{"email":"c@d.co"}`))
	var payload samplePayload
	err := DecodeJSONBody(req, &payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "single JSON object")
}

func TestCurrencyTag(t *testing.T) {
	type priced struct {
		Currency string `json:"currency" validate:"omitempty,currency"`
	}
	for body, ok := range map[string]bool{
		`{"currency":"usd"}`: true,
		`{"currency":"EUR"}`: true,
		`{}`:                 true,
		`{"currency":"US"}`:  false,
		`{"currency":"U$D"}`: false,
	} {
		var p priced
		err := DecodeJSONBody(httptest.NewRequest("POST", "/", strings.NewReader(body)), &p)
		assert.Equal(t, ok, err == nil, "body %s: %v", body, err)
	}
}

func TestParseUUID(t *testing.T) {
	_, err := ParseUUID("", "listing_id")
	require.Error(t, err)
	assert.Equal(t, "listing_id is required.", pkgerrors.As(err).Message())

	_, err = ParseUUID("abc", "listing_id")
	assert.Equal(t, "listing_id is invalid.", pkgerrors.As(err).Message())

	id, err := ParseUUID(" 6f1c2a8e-8d53-4a53-9a55-0b8f4a0b1c2d ", "listing_id")
	require.NoError(t, err)
	assert.Equal(t, "6f1c2a8e-8d53-4a53-9a55-0b8f4a0b1c2d", id.String())
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "secret", BearerToken("Bearer secret"))
	assert.Equal(t, "secret", BearerToken("bearer  secret "))
	assert.Equal(t, "secret", BearerToken("secret"))
}
