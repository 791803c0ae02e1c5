package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	checkoutsvc "github.com/angelmondragon/archivesurmer-backend/internal/checkout"
	"github.com/angelmondragon/archivesurmer-backend/internal/listings"
	"github.com/angelmondragon/archivesurmer-backend/internal/media"
	"github.com/angelmondragon/archivesurmer-backend/internal/offers"
	"github.com/angelmondragon/archivesurmer-backend/internal/profiles"
	"github.com/angelmondragon/archivesurmer-backend/internal/wishlist"
	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/archivesurmer-backend/pkg/errors"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
	"github.com/angelmondragon/archivesurmer-backend/pkg/payments"
)

func call(h http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

type fakeListings struct {
	created *listings.CreateInput
}

func (f *fakeListings) List(ctx context.Context, query listings.ListQuery) ([]listings.ListingDTO, error) {
	return []listings.ListingDTO{{Title: "Barbour jacket"}}, nil
}

func (f *fakeListings) Get(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Listing not found.")
}

func (f *fakeListings) Create(ctx context.Context, input listings.CreateInput) (*listings.ListingDTO, error) {
	f.created = &input
	return &listings.ListingDTO{ID: uuid.New(), Title: input.Title}, nil
}

func (f *fakeListings) SetOwnerStatus(ctx context.Context, input listings.OwnerStatusInput) (*listings.ListingDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Only the listing owner can update it.")
}

func TestListingsCreate(t *testing.T) {
	svc := &fakeListings{}
	h := ListingsCreate(svc, logger.Nop())

	rec := call(h, http.MethodPost, "/api/listings", `{"seller_email":" Seller@Example.COM ","title":"Wax jacket","brand":"Barbour","price":120}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, svc.created)
	assert.Equal(t, "seller@example.com", svc.created.SellerEmail)
	require.NotNil(t, svc.created.Price)
	assert.Equal(t, 120.0, *svc.created.Price)
	assert.Equal(t, "Wax jacket", decodeData(t, rec)["title"])
}

func TestListingsCreateRejectsBadBodies(t *testing.T) {
	h := ListingsCreate(&fakeListings{}, logger.Nop())

	rec := call(h, http.MethodPost, "/api/listings", `{"seller_email":"a@b.co","title":"x","brand":"y","sellerEmail":"a@b.co"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(h, http.MethodPost, "/api/listings", `{"seller_email":"not-an-email","title":"x","brand":"y"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeValidation), decodeError(t, rec)["code"])

	rec = call(h, http.MethodPost, "/api/listings", ``, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListingsHandlersWithoutService(t *testing.T) {
	rec := call(ListingsList(nil, logger.Nop()), http.MethodGet, "/api/listings", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListingsList(t *testing.T) {
	rec := call(ListingsList(&fakeListings{}, logger.Nop()), http.MethodGet, "/api/listings?status=all", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.EqualValues(t, 1, data["count"])
}

func TestListingsUpdateStatusMapsForbidden(t *testing.T) {
	body := `{"listing_id":"` + uuid.NewString() + `","seller_email":"s@example.com","status":"archived"}`
	rec := call(ListingsUpdateStatus(&fakeListings{}, logger.Nop()), http.MethodPatch, "/api/listings", body, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Only the listing owner can update it.", decodeError(t, rec)["error"])
}

type fakeOffers struct {
	acted *offers.ActionInput
}

func (f *fakeOffers) List(ctx context.Context, query offers.ListQuery) ([]offers.OfferDTO, error) {
	return nil, nil
}

func (f *fakeOffers) Create(ctx context.Context, input offers.CreateInput) (*offers.OfferDTO, error) {
	return &offers.OfferDTO{ID: uuid.New(), ListingID: input.ListingID}, nil
}

func (f *fakeOffers) Act(ctx context.Context, input offers.ActionInput) (*offers.OfferDTO, error) {
	f.acted = &input
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "Offer is no longer pending.")
}

func (f *fakeOffers) ExpireBefore(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	return 0, nil
}

func TestOffersActValidatesAndMapsConflict(t *testing.T) {
	svc := &fakeOffers{}
	h := OffersAct(svc, logger.Nop())

	rec := call(h, http.MethodPatch, "/api/offers", `{"offer_id":"nope","action":"accept","seller_email":"s@example.com"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "offer_id is invalid.", decodeError(t, rec)["error"])

	rec = call(h, http.MethodPatch, "/api/offers", `{"offer_id":"`+uuid.NewString()+`","action":"haggle"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(h, http.MethodPatch, "/api/offers", `{"offer_id":"`+uuid.NewString()+`","action":"counter","seller_email":"S@example.com","counter_amount":80}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, svc.acted)
	assert.Equal(t, "s@example.com", svc.acted.SellerEmail)
	require.NotNil(t, svc.acted.Counter)
	assert.Equal(t, 80.0, *svc.acted.Counter)
}

type fakeCheckout struct {
	input *checkoutsvc.Input
}

func (f *fakeCheckout) Start(ctx context.Context, input checkoutsvc.Input) (*checkoutsvc.Result, error) {
	f.input = &input
	return &checkoutsvc.Result{SessionID: "cs_test", URL: "https://checkout.example/cs_test", ListingID: input.ListingID}, nil
}

func TestCreateCheckoutSessionResolvesForwardedOrigin(t *testing.T) {
	svc := &fakeCheckout{}
	listingID := uuid.New()
	rec := call(CreateCheckoutSession(svc, "", logger.Nop()), http.MethodPost, "/api/create-checkout-session",
		`{"listing_id":"`+listingID.String()+`","customer_email":"Buyer@Example.com"}`,
		map[string]string{"X-Forwarded-Host": "shop.example", "X-Forwarded-Proto": "https"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, svc.input)
	assert.Equal(t, "https://shop.example", svc.input.Origin)
	assert.Equal(t, "buyer@example.com", svc.input.CustomerEmail)
	assert.Equal(t, listingID, svc.input.ListingID)
	assert.Equal(t, "cs_test", decodeData(t, rec)["session_id"])
}

func TestCreateCheckoutSessionPrefersConfiguredOrigin(t *testing.T) {
	svc := &fakeCheckout{}
	rec := call(CreateCheckoutSession(svc, "https://archivesurmer.example/", logger.Nop()), http.MethodPost, "/api/create-checkout-session",
		`{"listing_id":"`+uuid.NewString()+`"}`,
		map[string]string{"X-Forwarded-Host": "shop.example"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://archivesurmer.example", svc.input.Origin)
}

func TestCreateCheckoutSessionRequiresListingID(t *testing.T) {
	rec := call(CreateCheckoutSession(&fakeCheckout{}, "", logger.Nop()), http.MethodPost, "/api/create-checkout-session", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "listing_id is required.", decodeError(t, rec)["error"])
}

type fakeProfiles struct {
	status *profiles.AccountStatusResult
	signup *profiles.CustomerSignupResult
}

func (f *fakeProfiles) ResolveSeller(ctx context.Context, email string) (*models.SellerProfile, error) {
	return &models.SellerProfile{ID: uuid.New(), Email: email}, nil
}

func (f *fakeProfiles) ResolveCustomer(ctx context.Context, email string) (*models.CustomerProfile, error) {
	return &models.CustomerProfile{ID: uuid.New(), Email: email}, nil
}

func (f *fakeProfiles) FindCustomer(ctx context.Context, email string) (*models.CustomerProfile, error) {
	return nil, nil
}

func (f *fakeProfiles) StartOnboarding(ctx context.Context, input profiles.OnboardingInput) (*profiles.OnboardingResult, error) {
	return &profiles.OnboardingResult{URL: input.Origin + "/onboarding", AccountID: "acct_1"}, nil
}

func (f *fakeProfiles) AccountStatus(ctx context.Context, input profiles.AccountStatusInput) (*profiles.AccountStatusResult, error) {
	return f.status, nil
}

func (f *fakeProfiles) SignupCustomer(ctx context.Context, input profiles.CustomerSignupInput) (*profiles.CustomerSignupResult, error) {
	return f.signup, nil
}

func TestAccountStatusShapesProviderView(t *testing.T) {
	stale := "acct_old"
	svc := &fakeProfiles{status: &profiles.AccountStatusResult{
		Seller: &models.SellerProfile{ID: uuid.New(), Email: "s@example.com", StripeAccountID: &stale, ChargesEnabled: true},
		Account: &payments.AccountStatus{
			AccountID:       "acct_new",
			ChargesEnabled:  true,
			RequirementsDue: []string{"external_account"},
		},
	}}

	rec := call(AccountStatus(svc, logger.Nop()), http.MethodPost, "/api/account-status", `{"email":"s@example.com"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decodeData(t, rec)
	assert.Equal(t, "acct_new", data["account_id"])
	assert.Equal(t, true, data["charges_enabled"])
	assert.Equal(t, []any{"external_account"}, data["requirements_due"])
}

func TestAccountStatusWithoutLinkedAccount(t *testing.T) {
	svc := &fakeProfiles{status: &profiles.AccountStatusResult{
		Seller: &models.SellerProfile{ID: uuid.New(), Email: "s@example.com"},
	}}

	rec := call(AccountStatus(svc, logger.Nop()), http.MethodPost, "/api/account-status", `{"email":"s@example.com"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Nil(t, data["account_id"])
	assert.Equal(t, []any{}, data["requirements_due"])
}

func TestStartOnboardingUsesBodyOrigin(t *testing.T) {
	rec := call(StartOnboarding(&fakeProfiles{}, "https://configured.example", logger.Nop()), http.MethodPost, "/api/start-onboarding",
		`{"email":"s@example.com","origin":"https://seller.example/"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://seller.example/onboarding", decodeData(t, rec)["url"])
}

func TestCustomerSignupStatus(t *testing.T) {
	name := "Ada"
	svc := &fakeProfiles{signup: &profiles.CustomerSignupResult{
		Customer: &models.CustomerProfile{ID: uuid.New(), Email: "c@example.com", FullName: &name},
		Created:  true,
	}}
	h := CustomerSignup(svc, logger.Nop())

	rec := call(h, http.MethodPost, "/api/customer-signup", `{"email":"c@example.com","full_name":"Ada"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, "Ada", data["full_name"])
	assert.Equal(t, true, data["created"])

	svc.signup.Created = false
	rec = call(h, http.MethodPost, "/api/customer-signup", `{"email":"c@example.com"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type fakeWishlist struct {
	exists        bool
	removedEmail  string
	removedListID uuid.UUID
}

func (f *fakeWishlist) GetWishlist(ctx context.Context, customerEmail string) (wishlist.ListDTO, error) {
	return wishlist.ListDTO{Items: []wishlist.ItemDTO{}}, nil
}

func (f *fakeWishlist) AddItem(ctx context.Context, customerEmail string, listingID uuid.UUID) (*wishlist.AddResult, error) {
	return &wishlist.AddResult{Exists: f.exists}, nil
}

func (f *fakeWishlist) RemoveItem(ctx context.Context, customerEmail string, listingID uuid.UUID) (*wishlist.RemoveResult, error) {
	f.removedEmail = customerEmail
	f.removedListID = listingID
	return &wishlist.RemoveResult{Removed: true, ListingID: listingID}, nil
}

func TestWishlistAddStatus(t *testing.T) {
	svc := &fakeWishlist{}
	body := `{"customer_email":"c@example.com","listing_id":"` + uuid.NewString() + `"}`

	rec := call(WishlistAdd(svc, logger.Nop()), http.MethodPost, "/api/wishlist", body, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)

	svc.exists = true
	rec = call(WishlistAdd(svc, logger.Nop()), http.MethodPost, "/api/wishlist", body, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWishlistGetRequiresEmail(t *testing.T) {
	rec := call(WishlistGet(&fakeWishlist{}, logger.Nop()), http.MethodGet, "/api/wishlist", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "customer_email is required.", decodeError(t, rec)["error"])
}

func TestWishlistRemoveFromQueryOrBody(t *testing.T) {
	svc := &fakeWishlist{}
	listingID := uuid.New()

	rec := call(WishlistRemove(svc, logger.Nop()), http.MethodDelete, "/api/wishlist?customer_email=C@Example.com&listing_id="+listingID.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "c@example.com", svc.removedEmail)
	assert.Equal(t, listingID, svc.removedListID)

	other := uuid.New()
	rec = call(WishlistRemove(svc, logger.Nop()), http.MethodDelete, "/api/wishlist", `{"customer_email":"c@example.com","listing_id":"`+other.String()+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, other, svc.removedListID)
}

type fakeMedia struct {
	calls int
}

func (f *fakeMedia) Upload(ctx context.Context, input media.UploadInput) (*media.UploadOutput, error) {
	f.calls++
	return &media.UploadOutput{SecureURL: "https://cdn.example/" + input.Folder + "/a.png"}, nil
}

func TestUploadImageEnforcesBodyLimit(t *testing.T) {
	svc := &fakeMedia{}
	h := UploadImage(svc, 16, logger.Nop())

	huge := `{"image_data":"` + strings.Repeat("A", uploadEnvelopeSlack+1024) + `"}`
	rec := call(h, http.MethodPost, "/api/upload-image", huge, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "request body is too large", decodeError(t, rec)["error"])
	assert.Zero(t, svc.calls)

	rec = call(h, http.MethodPost, "/api/upload-image", `{"image_data":"https://img.example/a.png","folder":"listings"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://cdn.example/listings/a.png", decodeData(t, rec)["secure_url"])
}

type fakeModeration struct {
	decided *listings.ModerationInput
}

func (f *fakeModeration) Queue(ctx context.Context, moderationStatus, limit, offset string) ([]listings.ListingDTO, error) {
	return []listings.ListingDTO{}, nil
}

func (f *fakeModeration) Decide(ctx context.Context, input listings.ModerationInput) (*listings.ListingDTO, error) {
	f.decided = &input
	return &listings.ListingDTO{ID: input.ListingID}, nil
}

func TestModerationDecideFallsBackToNotes(t *testing.T) {
	svc := &fakeModeration{}
	listingID := uuid.New()

	rec := call(ModerationDecide(svc, logger.Nop()), http.MethodPost, "/api/moderate-listings",
		`{"listing_id":"`+listingID.String()+`","action":"reject","notes":"Blurry photos"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, svc.decided)
	assert.Equal(t, "reject", svc.decided.Action)
	assert.Equal(t, "Blurry photos", svc.decided.Reason)

	rec = call(ModerationDecide(svc, logger.Nop()), http.MethodPost, "/api/moderate-listings",
		`{"listing_id":"`+listingID.String()+`","action":"publish"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestModerationQueue(t *testing.T) {
	rec := call(ModerationQueue(&fakeModeration{}, logger.Nop()), http.MethodGet, "/api/moderate-listings?moderation_status=pending", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decodeData(t, rec)["count"])
}
