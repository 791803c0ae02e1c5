package profiles

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/archivesurmer-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/archivesurmer-backend/pkg/errors"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
	"github.com/angelmondragon/archivesurmer-backend/pkg/payments"
)

type fakeAccounts struct {
	created    []string
	linkFor    string
	returnURL  string
	status     payments.AccountStatus
	createErr  error
	retrieveID string
}

func (f *fakeAccounts) CreateConnectedAccount(_ context.Context, email string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, email)
	return "acct_new", nil
}

func (f *fakeAccounts) CreateAccountOnboardingLink(_ context.Context, accountID, returnURL, _ string) (string, error) {
	f.linkFor = accountID
	f.returnURL = returnURL
	return "https://connect.example.com/" + accountID, nil
}

func (f *fakeAccounts) RetrieveAccount(_ context.Context, accountID string) (payments.AccountStatus, error) {
	f.retrieveID = accountID
	status := f.status
	status.AccountID = accountID
	return status, nil
}

func newTestService(t *testing.T, accounts AccountProvider) (Service, Repository) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo, accounts, logger.Nop())
	require.NoError(t, err)
	return svc, repo
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"":                  "",
		"+33 6 12 34 56 78": "+33612345678",
		"0033612345678":     "+33612345678",
		"(415) 555-0100":    "+4155550100",
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizePhone(raw), raw)
	}
}

func TestStartOnboardingCreatesSellerAndAccount(t *testing.T) {
	accounts := &fakeAccounts{}
	svc, repo := newTestService(t, accounts)
	ctx := context.Background()

	res, err := svc.StartOnboarding(ctx, OnboardingInput{Email: " Shop@Example.com ", DisplayName: "Shop", Origin: "https://shop.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, "acct_new", res.AccountID)
	assert.Equal(t, "https://connect.example.com/acct_new", res.URL)
	assert.Equal(t, "https://shop.example.com/pages/sell-with-us", accounts.returnURL)
	assert.Equal(t, []string{"shop@example.com"}, accounts.created)

	seller, err := repo.FindSellerByEmail(ctx, "shop@example.com")
	require.NoError(t, err)
	require.NotNil(t, seller.StripeAccountID)
	assert.Equal(t, "acct_new", *seller.StripeAccountID)

	_, err = svc.StartOnboarding(ctx, OnboardingInput{Email: "shop@example.com", Origin: "https://shop.example.com"})
	require.NoError(t, err)
	assert.Len(t, accounts.created, 1, "existing account is reused")
}

func TestStartOnboardingRequiresOrigin(t *testing.T) {
	svc, _ := newTestService(t, &fakeAccounts{})
	_, err := svc.StartOnboarding(context.Background(), OnboardingInput{Email: "shop@example.com"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
}

func TestStartOnboardingProviderFailure(t *testing.T) {
	svc, _ := newTestService(t, &fakeAccounts{createErr: errors.New("provider down")})
	_, err := svc.StartOnboarding(context.Background(), OnboardingInput{Email: "shop@example.com", Origin: "https://shop.example.com"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestAccountStatusPersistsFlags(t *testing.T) {
	accounts := &fakeAccounts{status: payments.AccountStatus{ChargesEnabled: true, PayoutsEnabled: true, DetailsSubmitted: true}}
	svc, repo := newTestService(t, accounts)
	ctx := context.Background()

	_, err := svc.StartOnboarding(ctx, OnboardingInput{Email: "shop@example.com", Origin: "https://shop.example.com"})
	require.NoError(t, err)

	res, err := svc.AccountStatus(ctx, AccountStatusInput{Email: "shop@example.com"})
	require.NoError(t, err)
	require.NotNil(t, res.Account)
	assert.Equal(t, "acct_new", accounts.retrieveID)
	assert.True(t, res.Seller.OnboardingComplete)

	stored, err := repo.FindSellerByAccountID(ctx, "acct_new")
	require.NoError(t, err)
	assert.True(t, stored.ChargesEnabled)
	assert.True(t, stored.PayoutsEnabled)
	assert.True(t, stored.OnboardingComplete)

	_, err = svc.AccountStatus(ctx, AccountStatusInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.AccountStatus(ctx, AccountStatusInput{Email: "nobody@example.com"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSignupCustomerCreatesThenUpdates(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	first, err := svc.SignupCustomer(ctx, CustomerSignupInput{Email: "Ana@Example.com", Phone: "+33 6 12 34 56 78"})
	require.NoError(t, err)
	assert.True(t, first.Created)
	require.NotNil(t, first.Customer.Phone)
	assert.Equal(t, "+33612345678", *first.Customer.Phone)

	second, err := svc.SignupCustomer(ctx, CustomerSignupInput{Email: "ana@example.com", FullName: "Ana", MarketingOptIn: true})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Customer.ID, second.Customer.ID)
	assert.True(t, second.Customer.MarketingOptIn)

	_, err = svc.SignupCustomer(ctx, CustomerSignupInput{Email: "ana@example.com", Phone: "12"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestResolveCustomer(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	found, err := svc.FindCustomer(ctx, "ghost@example.com")
	require.NoError(t, err)
	assert.Nil(t, found)

	_, err = svc.ResolveCustomer(ctx, "ghost@example.com")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.ResolveSeller(ctx, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
