// Package auth implements the session lifecycle for Urvue accounts: it
// verifies provider credentials, bootstraps first-time users, and issues,
// resolves, and revokes the session tokens every authenticated request
// rides on.
//
// Login flow:
//   - Auther.Login verifies the Authorization credential against the
//     configured IdentityProvider, refreshes or creates the directory
//     record, and returns a signed session token plus the caller's profile.
//     First-time users get a referral code and an empty search profile in a
//     compensated two-step bootstrap.
//   - Session tokens are stateful: each issued token is persisted, and the
//     capability gates in middleware/gates require both a valid signature
//     and a live row. Deleting a user's rows signs them out everywhere.
//
// Revocation and expiry:
//   - Revoker.Logout revokes provider refresh tokens and clears stored
//     session rows in one call, reporting each side independently.
//   - TokenSweeper deletes rows older than the session TTL on a background
//     ticker so the store does not accumulate expired sessions.
//
// Providers:
//   - IdentityProvider abstracts the external identity service; the
//     provider/firebase subpackage adapts the Firebase Admin SDK. Custom
//     providers only need credential verification and refresh revocation.
package auth
