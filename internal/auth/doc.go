// Package auth provides account management and stateless token-based
// authentication for Beehive Core.
//
// Access tokens are HS256-signed JWTs carrying the user id as subject
// and the username as a custom claim. Validity is determined purely by
// signature and expiry; there is no session state and no revocation
// list. Passwords are stored as bcrypt hashes.
package auth
