// Package accountstub is an in-memory account API speaking the wire format
// the goAuthSync account client expects. It backs the demo command and
// end-to-end tests.
//
// Passwords are stored as argon2id PHC strings and login responses carry an
// HS256 JWT. Error bodies use the three shapes real deployments return: a
// {"message"} object, a {"description"} object and an array of
// {"code","description"} field errors.
package accountstub
