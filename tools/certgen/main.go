// Package main generates a development Certificate Authority and a server
// certificate signed by it, writing them under the "certs" directory.
//
// Point FASO_SERVER_TLS_CERT and FASO_SERVER_TLS_KEY at certs/server.crt and
// certs/server.key, and give certs/ca.crt to the CLI client with -ca.
package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/atinyakov/fasogadget/internal/certgen"
)

func main() {
	dir := flag.String("dir", "certs", "output directory")
	hosts := flag.String("hosts", "localhost,127.0.0.1", "comma separated server host names and IPs")
	flag.Parse()

	if err := run(*dir, strings.Split(*hosts, ",")); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Certificates generated into ./%s\n", *dir)
}

// run creates the CA, unless one already exists in dir, and a fresh server
// certificate for hosts.
func run(dir string, hosts []string) error {
	caCertPath, caKeyPath := filepath.Join(dir, "ca.crt"), filepath.Join(dir, "ca.key")

	caCert, caKey, err := certgen.LoadCACredentials(caCertPath, caKeyPath)
	if err != nil {
		certPEM, keyPEM, err := certgen.GenerateCA("FASO GADGET Dev CA")
		if err != nil {
			return fmt.Errorf("generate CA: %w", err)
		}
		if err := certgen.WritePair(dir, "ca", certPEM, keyPEM); err != nil {
			return err
		}
		if caCert, caKey, err = certgen.LoadCACredentials(caCertPath, caKeyPath); err != nil {
			return err
		}
	}

	certPEM, keyPEM, err := certgen.GenerateServerCertificate(hosts, caCert, caKey)
	if err != nil {
		return fmt.Errorf("generate server certificate: %w", err)
	}
	return certgen.WritePair(dir, "server", certPEM, keyPEM)
}
