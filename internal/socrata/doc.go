// Package socrata is a small client for the Socrata Open Data (SODA) resource API.
//
// Only the read path is implemented: a GET against /resource/{dataset}.json
// with SoQL parameters, decoded into order-preserving ilsetl.Record values.
package socrata
