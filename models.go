package auth

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ReferralCodePrefix prefixes every referral code; the numeric suffix is
// strictly increasing starting at 1.
const ReferralCodePrefix = "UR"

// User is the directory record for a verified external identity. Exactly one
// row exists per external_id; display_name and avatar_url are refreshed on
// every successful login. Points, counters, and moderation flags are owned by
// collaborator subsystems and only read here.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID           uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	ExternalID   string    `bun:"external_id,notnull,unique" json:"external_id,omitempty"`
	DisplayName  string    `bun:"display_name" json:"display_name,omitempty"`
	AvatarURL    string    `bun:"avatar_url" json:"avatar_url,omitempty"`
	ReferralCode string    `bun:"referral_code,notnull,unique" json:"referral_code,omitempty"`

	AbsolutePoints    int `bun:"absolute_points,notnull,default:0" json:"absolute_points"`
	CompetitionPoints int `bun:"competition_points,notnull,default:0" json:"competition_points"`
	QuestionsAnswered int `bun:"questions_answered,notnull,default:0" json:"questions_answered"`
	TotalViews        int `bun:"total_views,notnull,default:0" json:"total_views"`

	IsAdmin                 bool `bun:"is_admin,notnull,default:false" json:"is_admin"`
	BlockedFromReviews      bool `bun:"blocked_from_reviews,notnull,default:false" json:"blocked_from_reviews"`
	BlockedFromQuestions    bool `bun:"blocked_from_questions,notnull,default:false" json:"blocked_from_questions"`
	BlockedFromComment      bool `bun:"blocked_from_comment,notnull,default:false" json:"blocked_from_comment"`
	BlockedFromAnswer       bool `bun:"blocked_from_answer,notnull,default:false" json:"blocked_from_answer"`
	BlockedFromReplyComment bool `bun:"blocked_from_reply_comment,notnull,default:false" json:"blocked_from_reply_comment"`
	BlockedFromReplyAnswer  bool `bun:"blocked_from_reply_answer,notnull,default:false" json:"blocked_from_reply_answer"`

	OwnedListLocked       bool `bun:"owned_list_locked,notnull,default:false" json:"owned_list_locked"`
	HasLoggedInFromMobile bool `bun:"mobile_login,notnull,default:false" json:"mobile_login"`
	DeletionRequested     bool `bun:"deletion_requested,notnull,default:false" json:"deletion_requested"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// ReferralSuffix parses the numeric suffix of the user's referral code.
func (u *User) ReferralSuffix() (int, error) {
	if u == nil || !strings.HasPrefix(u.ReferralCode, ReferralCodePrefix) {
		return 0, fmt.Errorf("malformed referral code: %q", u.ReferralCode)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(u.ReferralCode, ReferralCodePrefix))
	if err != nil {
		return 0, fmt.Errorf("malformed referral code: %q", u.ReferralCode)
	}
	return n, nil
}

// Profile is the projection of a User returned by the login and profile
// endpoints.
type Profile struct {
	ID                string `json:"_id"`
	Name              string `json:"name"`
	Picture           string `json:"picture"`
	AbsolutePoints    int    `json:"absolutePoints"`
	CompetitionPoints int    `json:"points"`
	RefCode           string `json:"refCode"`
	QuestionsAnswered int    `json:"questionsAnswered"`
	TotalViews        int    `json:"totalViews"`
	DeletionRequested bool   `json:"deletionRequested"`
}

// NewProfileFromUser builds the client projection of a directory record.
func NewProfileFromUser(u *User) Profile {
	if u == nil {
		return Profile{}
	}
	return Profile{
		ID:                u.ID.String(),
		Name:              u.DisplayName,
		Picture:           u.AvatarURL,
		AbsolutePoints:    u.AbsolutePoints,
		CompetitionPoints: u.CompetitionPoints,
		RefCode:           u.ReferralCode,
		QuestionsAnswered: u.QuestionsAnswered,
		TotalViews:        u.TotalViews,
		DeletionRequested: u.DeletionRequested,
	}
}

// SessionToken is the persisted record of an issued session token. Deleting a
// row is the only pre-expiry revocation mechanism: a cryptographically valid
// token is rejected once its row is gone.
type SessionToken struct {
	bun.BaseModel `bun:"table:session_tokens,alias:stk"`

	ID       uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Token    string     `bun:"token,notnull,unique" json:"token,omitempty"`
	UserID   uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User     *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	IssuedAt *time.Time `bun:"issued_at,nullzero,default:current_timestamp" json:"issued_at,omitempty"`
}

// SearchProfile is the one-per-user companion document created alongside a
// new User; collaborator subsystems use it for recent-search tracking. Its
// creation failure during bootstrap triggers compensation.
type SearchProfile struct {
	bun.BaseModel `bun:"table:search_profiles,alias:spr"`

	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID         uuid.UUID  `bun:"user_id,notnull,unique,type:uuid" json:"user_id,omitempty"`
	RecentSearches []string   `bun:"recent_searches,type:jsonb" json:"recent_searches,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
