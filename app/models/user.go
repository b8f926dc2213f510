// Package models defines the persisted entities and the JSON shapes returned to clients.
package models

import "time"

type User struct {
	ID                   string    `db:"id" json:"id"`
	ClerkID              string    `db:"clerk_id" json:"-"`
	Email                string    `db:"email" json:"email"`
	Name                 string    `db:"name" json:"name"`
	IsPremium            bool      `db:"is_premium" json:"isPremium"`
	StripeCustomerID     string    `db:"stripe_customer_id" json:"-"`
	StripeSubscriptionID string    `db:"stripe_subscription_id" json:"-"`
	IsFirstUser          bool      `db:"is_first_user" json:"isFirstUser"`
	CreatedAt            time.Time `db:"created_at" json:"createdAt"`
}

// HasSubscription reports whether a Stripe subscription has been recorded.
func (u User) HasSubscription() bool {
	return u.StripeSubscriptionID != ""
}

// Answer is one Likert response to a self-assessment question.
type Answer struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"-"`
	QuestionID int       `db:"question_id" json:"questionId"`
	Value      int       `db:"value" json:"value"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}
