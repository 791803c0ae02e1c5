package profiles

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/angelmondragon/archivesurmer-backend/pkg/db"
	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/archivesurmer-backend/pkg/errors"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
	"github.com/angelmondragon/archivesurmer-backend/pkg/payments"
)

var phonePattern = regexp.MustCompile(`^\+\d{7,18}$`)

// AccountProvider is the slice of the payment provider used for seller onboarding.
type AccountProvider interface {
	CreateConnectedAccount(ctx context.Context, email string) (string, error)
	CreateAccountOnboardingLink(ctx context.Context, accountID, returnURL, refreshURL string) (string, error)
	RetrieveAccount(ctx context.Context, accountID string) (payments.AccountStatus, error)
}

// Service resolves and maintains seller and customer identities.
type Service interface {
	ResolveSeller(ctx context.Context, email string) (*models.SellerProfile, error)
	ResolveCustomer(ctx context.Context, email string) (*models.CustomerProfile, error)
	FindCustomer(ctx context.Context, email string) (*models.CustomerProfile, error)
	StartOnboarding(ctx context.Context, input OnboardingInput) (*OnboardingResult, error)
	AccountStatus(ctx context.Context, input AccountStatusInput) (*AccountStatusResult, error)
	SignupCustomer(ctx context.Context, input CustomerSignupInput) (*CustomerSignupResult, error)
}

type service struct {
	repo     Repository
	accounts AccountProvider
	logg     *logger.Logger
}

// NewService builds the profiles service. accounts may be nil when the
// process never onboards sellers.
func NewService(repo Repository, accounts AccountProvider, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("profiles repository required")
	}
	return &service{repo: repo, accounts: accounts, logg: logg}, nil
}

// NormalizeEmail trims and lowercases an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone keeps digits and a leading plus, mapping a 00 prefix to +.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	normalized := b.String()
	if strings.HasPrefix(normalized, "00") {
		normalized = "+" + normalized[2:]
	}
	if !strings.HasPrefix(normalized, "+") {
		normalized = "+" + strings.ReplaceAll(normalized, "+", "")
	}
	return normalized
}

func (s *service) ResolveSeller(ctx context.Context, email string) (*models.SellerProfile, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller email is required")
	}
	seller, err := s.repo.FindSellerByEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Seller profile not found. Complete onboarding first.")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller profile")
	}
	return seller, nil
}

func (s *service) ResolveCustomer(ctx context.Context, email string) (*models.CustomerProfile, error) {
	customer, err := s.FindCustomer(ctx, email)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Customer profile not found. Sign up first.")
	}
	return customer, nil
}

// FindCustomer returns nil without error when no profile exists.
func (s *service) FindCustomer(ctx context.Context, email string) (*models.CustomerProfile, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}
	customer, err := s.repo.FindCustomerByEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer profile")
	}
	return customer, nil
}

func (s *service) StartOnboarding(ctx context.Context, input OnboardingInput) (*OnboardingResult, error) {
	if s.accounts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment provider is not configured")
	}
	email := NormalizeEmail(input.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Email required")
	}
	origin := strings.TrimRight(strings.TrimSpace(input.Origin), "/")
	if origin == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "public origin is not configured")
	}

	seller, err := s.repo.FindSellerByEmail(ctx, email)
	if err != nil && !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller profile")
	}
	if seller == nil {
		seller = &models.SellerProfile{Email: email}
		if name := strings.TrimSpace(input.DisplayName); name != "" {
			seller.DisplayName = &name
		}
		if err := s.repo.CreateSeller(ctx, seller); err != nil {
			if !db.IsUniqueViolation(err, "seller_profiles_email_key") {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create seller profile")
			}
			if seller, err = s.repo.FindSellerByEmail(ctx, email); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller profile")
			}
		}
	}

	accountID := ""
	if seller.HasPaymentAccount() {
		accountID = *seller.StripeAccountID
	} else {
		accountID, err = s.accounts.CreateConnectedAccount(ctx, email)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, err.Error())
		}
		if err := s.repo.UpdateSeller(ctx, seller.ID, map[string]any{"stripe_account_id": accountID}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link payment account")
		}
	}

	pageURL := origin + "/pages/sell-with-us"
	url, err := s.accounts.CreateAccountOnboardingLink(ctx, accountID, pageURL, pageURL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, err.Error())
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"seller_id": seller.ID.String(), "account_id": accountID})
	s.logg.Info(logCtx, "seller onboarding link created")
	return &OnboardingResult{URL: url, AccountID: accountID, SellerID: seller.ID}, nil
}

func (s *service) AccountStatus(ctx context.Context, input AccountStatusInput) (*AccountStatusResult, error) {
	email := NormalizeEmail(input.Email)
	accountID := strings.TrimSpace(input.AccountID)
	if email == "" && accountID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Provide either email or stripe_account_id.")
	}

	var (
		seller *models.SellerProfile
		err    error
	)
	if email != "" {
		seller, err = s.repo.FindSellerByEmail(ctx, email)
	} else {
		seller, err = s.repo.FindSellerByAccountID(ctx, accountID)
	}
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Seller profile not found. Start onboarding first.")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller profile")
	}

	if accountID == "" && seller.HasPaymentAccount() {
		accountID = *seller.StripeAccountID
	}
	result := &AccountStatusResult{Seller: seller}
	if accountID == "" {
		return result, nil
	}
	if s.accounts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment provider is not configured")
	}

	status, err := s.accounts.RetrieveAccount(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, err.Error())
	}
	result.Account = &status

	complete := status.OnboardingComplete()
	updates := map[string]any{}
	if seller.OnboardingComplete != complete {
		updates["onboarding_complete"] = complete
	}
	if seller.ChargesEnabled != status.ChargesEnabled {
		updates["charges_enabled"] = status.ChargesEnabled
	}
	if seller.PayoutsEnabled != status.PayoutsEnabled {
		updates["payouts_enabled"] = status.PayoutsEnabled
	}
	if seller.DetailsSubmitted != status.DetailsSubmitted {
		updates["details_submitted"] = status.DetailsSubmitted
	}
	if err := s.repo.UpdateSeller(ctx, seller.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update seller profile")
	}
	seller.OnboardingComplete = complete
	seller.ChargesEnabled = status.ChargesEnabled
	seller.PayoutsEnabled = status.PayoutsEnabled
	seller.DetailsSubmitted = status.DetailsSubmitted
	return result, nil
}

func (s *service) SignupCustomer(ctx context.Context, input CustomerSignupInput) (*CustomerSignupResult, error) {
	email := NormalizeEmail(input.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Please provide a valid email address.")
	}
	phone := NormalizePhone(input.Phone)
	if phone != "" && !phonePattern.MatchString(phone) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Please provide a valid phone number in international format.")
	}

	fields := map[string]any{
		"phone":            nullable(phone),
		"full_name":        nullable(strings.TrimSpace(input.FullName)),
		"marketing_opt_in": input.MarketingOptIn,
	}

	existing, err := s.repo.FindCustomerByEmail(ctx, email)
	if err != nil && !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer profile")
	}
	if existing == nil {
		customer := &models.CustomerProfile{
			Email:          email,
			Phone:          nullable(phone),
			FullName:       nullable(strings.TrimSpace(input.FullName)),
			MarketingOptIn: input.MarketingOptIn,
		}
		err := s.repo.CreateCustomer(ctx, customer)
		if err == nil {
			s.logg.Info(s.logg.WithActor(ctx, "customer", email), "customer profile created")
			return &CustomerSignupResult{Customer: customer, Created: true}, nil
		}
		if !db.IsUniqueViolation(err, "customer_profiles_email_key") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create customer profile")
		}
		if existing, err = s.repo.FindCustomerByEmail(ctx, email); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer profile")
		}
	}

	if err := s.repo.UpdateCustomer(ctx, existing.ID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update customer profile")
	}
	existing.Phone = nullable(phone)
	existing.FullName = nullable(strings.TrimSpace(input.FullName))
	existing.MarketingOptIn = input.MarketingOptIn
	return &CustomerSignupResult{Customer: existing, Created: false}, nil
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
