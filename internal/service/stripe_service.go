package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"app/internal/config"
	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	billingsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	customerpkg "github.com/stripe/stripe-go/v82/customer"
	subscriptionpkg "github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeService drives checkout and the billing portal, and mirrors provider
// subscription state into the usage ledger. The ledger is a read model of
// Stripe: webhooks overwrite tier and status, never the usage counters.
type StripeService struct {
	cfg        *config.Config
	userRepo   repository.UserRepository
	ledgerRepo repository.LedgerRepository
	logger     zerolog.Logger
}

// NewStripeService initializes the Stripe key and returns the service with a scoped logger.
func NewStripeService(cfg *config.Config, userRepo repository.UserRepository, ledgerRepo repository.LedgerRepository, logger zerolog.Logger) *StripeService {
	stripe.Key = cfg.StripeSecretKey
	lg := logger.With().Str("service", "StripeService").Logger()
	return &StripeService{cfg: cfg, userRepo: userRepo, ledgerRepo: ledgerRepo, logger: lg}
}

// getUserIDFromEvent resolves the user from webhook metadata or, failing
// that, the stored customer ID mapping.
func (s *StripeService) getUserIDFromEvent(ctx context.Context, metadata map[string]string, customerID string) (string, error) {
	if userID, ok := metadata["user_id"]; ok && userID != "" {
		return userID, nil
	}
	if customerID == "" {
		return "", errors.New("cannot determine user: missing metadata and customer id")
	}
	s.logger.Warn().Str("stripe_customer_id", customerID).Msg("Missing user_id metadata; looking up user by customer ID")
	u, err := s.userRepo.GetUserByStripeCustomerID(ctx, customerID)
	if err != nil {
		return "", fmt.Errorf("failed to lookup user by Stripe customer ID: %w", err)
	}
	if u == nil {
		return "", fmt.Errorf("no user found for customer ID: %s", customerID)
	}
	return u.UserID, nil
}

// GetOrCreateCustomer ensures a Stripe Customer exists for a user.
func (s *StripeService) GetOrCreateCustomer(ctx context.Context, user *model.User) (string, error) {
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}
	s.logger.Warn().Str("user_id", user.UserID).Msg("No Stripe customer ID found, creating customer as fallback")
	return s.CreateCustomer(ctx, user)
}

// CreateCustomer creates a new Stripe customer for a user.
func (s *StripeService) CreateCustomer(ctx context.Context, user *model.User) (string, error) {
	params := &stripe.CustomerParams{
		Email:    stripe.String(user.Email),
		Name:     stripe.String(user.Name),
		Metadata: map[string]string{"user_id": user.UserID},
	}
	cust, err := customerpkg.New(params)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.UserID).Msg("Failed to create Stripe customer")
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	if err := s.userRepo.UpdateStripeCustomerID(ctx, user.UserID, cust.ID); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.UserID).Msg("Failed to store stripe customer id")
		return "", fmt.Errorf("store stripe customer id: %w", err)
	}
	return cust.ID, nil
}

// CreateCheckoutSession creates a Stripe Checkout session for the pro plan.
func (s *StripeService) CreateCheckoutSession(ctx context.Context, userID, plan string) (string, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch user for checkout session")
		return "", fmt.Errorf("fetch user: %w", err)
	}
	if user == nil {
		return "", fmt.Errorf("user not found: %s", userID)
	}
	customerID, err := s.GetOrCreateCustomer(ctx, user)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to get or create Stripe customer for checkout session")
		return "", err
	}
	var priceID string
	switch plan {
	case "monthly":
		priceID = s.cfg.StripePriceProMonthly
	case "annual":
		priceID = s.cfg.StripePriceProAnnual
	default:
		return "", fmt.Errorf("invalid plan: %s", plan)
	}
	sessParams := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          []*stripe.CheckoutSessionLineItemParams{{Price: stripe.String(priceID), Quantity: stripe.Int64(1)}},
		Mode:               stripe.String(stripe.CheckoutSessionModeSubscription),
		SuccessURL:         stripe.String(s.cfg.StripePortalReturnURL + "?status=success"),
		CancelURL:          stripe.String(s.cfg.StripePortalReturnURL + "?status=cancel"),
		Metadata:           map[string]string{"user_id": userID},
	}
	sess, err := checkoutsession.New(sessParams)
	if err != nil {
		s.logger.Error().Err(err).Str("plan", plan).Msg("Failed to create Stripe checkout session")
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// CreatePortalSession creates a Stripe Customer Portal session.
func (s *StripeService) CreatePortalSession(ctx context.Context, userID string) (string, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch user for portal session")
		return "", fmt.Errorf("fetch user: %w", err)
	}
	if user == nil || user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		return "", fmt.Errorf("no stripe customer for user: %s", userID)
	}
	params := &stripe.BillingPortalSessionParams{Customer: stripe.String(*user.StripeCustomerID), ReturnURL: stripe.String(s.cfg.StripePortalReturnURL)}
	sess, err := billingsession.New(params)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create Stripe billing portal session")
		return "", fmt.Errorf("create billing portal session: %w", err)
	}
	return sess.URL, nil
}

// tierForPrice maps a price ID to a tier. An unrecognized price grants
// nothing; pro is only mirrored for the prices we sell.
func (s *StripeService) tierForPrice(priceID string) model.Tier {
	switch priceID {
	case s.cfg.StripePriceProMonthly, s.cfg.StripePriceProAnnual:
		return model.TierPro
	default:
		s.logger.Error().Str("price_id", priceID).Msg("Unrecognized price ID, mirroring as free")
		return model.TierFree
	}
}

// mirrorSubscription writes one provider subscription into the ledger. A
// non-empty overrideStatus takes precedence over the subscription's own
// status.
func (s *StripeService) mirrorSubscription(ctx context.Context, userID string, sub *stripe.Subscription, overrideStatus model.Status) error {
	if len(sub.Items.Data) == 0 {
		return fmt.Errorf("subscription %s has no items", sub.ID)
	}
	item := sub.Items.Data[0]
	if item.Price == nil || item.Price.ID == "" {
		return fmt.Errorf("subscription %s has no price", sub.ID)
	}

	status := model.Status(sub.Status)
	if overrideStatus != "" {
		status = overrideStatus
	}

	interval := ""
	if item.Price.Recurring != nil {
		interval = string(item.Price.Recurring.Interval)
	}

	start := time.Unix(item.CurrentPeriodStart, 0)
	end := time.Unix(item.CurrentPeriodEnd, 0)

	ledger := &model.UsageLedger{
		UserID:               userID,
		Tier:                 s.tierForPrice(item.Price.ID),
		Status:               status,
		StripeCustomerID:     strPtr(sub.Customer.ID),
		StripeSubscriptionID: strPtr(sub.ID),
		BillingInterval:      strPtr(interval),
		CurrentPeriodStart:   &start,
		CurrentPeriodEnd:     &end,
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
		UsageResetDate:       firstOfMonth(time.Now()),
	}
	if sub.TrialStart > 0 {
		t := time.Unix(sub.TrialStart, 0)
		ledger.TrialStart = &t
	}
	if sub.TrialEnd > 0 {
		t := time.Unix(sub.TrialEnd, 0)
		ledger.TrialEnd = &t
	}

	if err := s.ledgerRepo.UpsertFromProvider(ctx, ledger); err != nil {
		return fmt.Errorf("mirror subscription %s: %w", sub.ID, err)
	}
	s.logger.Info().
		Str("user_id", userID).
		Str("subscription_id", sub.ID).
		Str("tier", string(ledger.Tier)).
		Str("status", string(status)).
		Msg("Subscription mirrored into ledger")
	return nil
}

// downgradeToFree resets a user's ledger to the free tier while leaving the
// customer ID in place for future re-subscription.
func (s *StripeService) downgradeToFree(ctx context.Context, userID string, customerID string) error {
	ledger := &model.UsageLedger{
		UserID:           userID,
		Tier:             model.TierFree,
		Status:           model.StatusCanceled,
		StripeCustomerID: strPtr(customerID),
		UsageResetDate:   firstOfMonth(time.Now()),
	}
	if err := s.ledgerRepo.UpsertFromProvider(ctx, ledger); err != nil {
		return fmt.Errorf("downgrade user %s: %w", userID, err)
	}
	return nil
}

// HandleWebhook processes Stripe webhook events after verifying the
// signature. Events that cannot be attributed to a user fail loudly so
// Stripe retries them.
func (s *StripeService) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read Stripe webhook payload")
		http.Error(w, "failed to read payload", http.StatusBadRequest)
		return
	}
	sig := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEvent(payload, sig, s.cfg.StripeWebhookSecret)
	if err != nil {
		s.logger.Error().Err(err).Msg("Signature verification failed for Stripe webhook")
		http.Error(w, "signature verification failed", http.StatusBadRequest)
		return
	}
	s.logger.Info().Str("event_type", string(event.Type)).Msg("Stripe webhook received")

	ctx := r.Context()
	switch event.Type {
	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			s.logger.Error().Err(err).Msg("Invalid checkout.session data")
			http.Error(w, "invalid checkout.session data", http.StatusBadRequest)
			return
		}
		userID := cs.Metadata["user_id"]
		if userID == "" {
			s.logger.Error().Str("session_id", cs.ID).Msg("Missing user_id in checkout session metadata")
			http.Error(w, "missing user_id in metadata", http.StatusBadRequest)
			return
		}
		subObj, err := subscriptionpkg.Get(cs.Subscription.ID, nil)
		if err != nil {
			s.logger.Error().Err(err).Str("subscription_id", cs.Subscription.ID).Msg("Failed to fetch subscription details")
			http.Error(w, "failed to fetch subscription details", http.StatusInternalServerError)
			return
		}
		if err := s.mirrorSubscription(ctx, userID, subObj, model.StatusActive); err != nil {
			s.logger.Error().Err(err).Msg("Failed to save subscription on checkout.session.completed")
			http.Error(w, "failed to save subscription", http.StatusInternalServerError)
			return
		}

	case "invoice.payment_succeeded", "invoice.payment_failed":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			s.logger.Error().Err(err).Msg("Invalid invoice payload")
			http.Error(w, "invalid invoice data", http.StatusBadRequest)
			return
		}
		userID, err := s.getUserIDFromEvent(ctx, invoice.Metadata, invoice.Customer.ID)
		if err != nil {
			s.logger.Error().Err(err).Str("invoice_id", invoice.ID).Msg("Failed to determine user ID from invoice")
			http.Error(w, "failed to identify user", http.StatusInternalServerError)
			return
		}

		var subID string
		if invoice.Lines != nil {
			for _, line := range invoice.Lines.Data {
				if line.Subscription != nil && line.Subscription.ID != "" {
					subID = line.Subscription.ID
					break
				}
			}
		}
		if subID == "" {
			// One-time invoice; nothing to mirror.
			s.logger.Info().Str("invoice_id", invoice.ID).Msg("Invoice has no subscription, skipping")
			w.WriteHeader(http.StatusOK)
			return
		}
		subObj, err := subscriptionpkg.Get(subID, nil)
		if err != nil {
			s.logger.Error().Err(err).Str("subscription_id", subID).Msg("Failed to fetch subscription details")
			http.Error(w, "failed to fetch subscription details", http.StatusInternalServerError)
			return
		}

		override := model.StatusActive
		if event.Type == "invoice.payment_failed" {
			override = model.StatusPastDue
		}
		if err := s.mirrorSubscription(ctx, userID, subObj, override); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to mirror subscription from invoice event")
			http.Error(w, "failed to update subscription", http.StatusInternalServerError)
			return
		}

	case "customer.subscription.updated":
		var ss stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &ss); err != nil {
			s.logger.Error().Err(err).Msg("Invalid customer.subscription.updated payload")
			http.Error(w, "invalid subscription data", http.StatusBadRequest)
			return
		}
		userID, err := s.getUserIDFromEvent(ctx, ss.Metadata, ss.Customer.ID)
		if err != nil {
			s.logger.Error().Err(err).Str("subscription_id", ss.ID).Msg("Failed to determine user ID from subscription")
			http.Error(w, "failed to identify user", http.StatusInternalServerError)
			return
		}
		if err := s.mirrorSubscription(ctx, userID, &ss, ""); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to mirror subscription on customer.subscription.updated")
			http.Error(w, "failed to update subscription", http.StatusInternalServerError)
			return
		}

	case "customer.subscription.deleted":
		var ss stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &ss); err != nil {
			s.logger.Error().Err(err).Msg("Invalid customer.subscription.deleted payload")
			http.Error(w, "invalid subscription data", http.StatusBadRequest)
			return
		}
		userID, err := s.getUserIDFromEvent(ctx, ss.Metadata, ss.Customer.ID)
		if err != nil {
			s.logger.Error().Err(err).Str("subscription_id", ss.ID).Msg("Failed to determine user ID from subscription")
			http.Error(w, "failed to identify user", http.StatusInternalServerError)
			return
		}
		if err := s.downgradeToFree(ctx, userID, ss.Customer.ID); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to downgrade on customer.subscription.deleted")
			http.Error(w, "failed to downgrade subscription", http.StatusInternalServerError)
			return
		}

	default:
		s.logger.Warn().Str("event_type", string(event.Type)).Msg("Unhandled Stripe webhook event")
	}
	w.WriteHeader(http.StatusOK)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
