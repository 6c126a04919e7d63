// Package creds resolves API keys for tile services.
//
// A [Provider] is queried once per seeding run and resolved keys are never
// logged. Three implementations are provided:
//
//   - [Static]: a fixed in-memory mapping, for tests and flag-supplied keys
//   - [Env]: reads TILESEED_API_KEY_<SERVICE> from the environment
//   - [File]: a JSON key file in the user's home directory, for setups
//     without an environment-based secret store
//
// [Chain] tries providers in order, so the usual setup is environment
// first with the key file as fallback.
package creds
