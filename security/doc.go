// Package security holds the TLS settings the HTTP server serves with.
//
//	tls:
//	  cert_file: /etc/npuflow/tls/cert.pem
//	  key_file: /etc/npuflow/tls/key.pem
//	  client_ca_file: /etc/npuflow/tls/clients.pem   # optional, enables mTLS
//	  min_version: "1.3"
package security
