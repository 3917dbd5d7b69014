// Package main (cmd/publisher) publishes contract specifications to Provenance
// metadata module locations.
//
// Commands:
//
//	bootstrap           - Store bundles and write missing scope, contract and record specifications to every location
//	check               - Validate the contracts of a descriptor without contacting any location
//	clean               - Remove the manifests written by bootstrap
//	address encode      - Build a metadata address from a kind, uuid and optional name
//	address decode      - Print the kind, uuid and secondary id of a bech32 metadata address
//	account             - Print the account address of a location's signing key, optionally with its on-chain sequence
//
// Example:
//
//	publisher bootstrap --config publisher.yaml --descriptor contracts.yaml --metrics-addr 127.0.0.1:8090
//
// Locations are published one at a time in name order. A location that fails
// is reported at the end; a bundle that hashes differently at two locations
// stops the run.
package main
