package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
)

var (
	nBits    int
	filename string
	readPriv bool
)

func init() {
	flag.IntVar(&nBits, "b", 2048, "number of bits in the RSA key")
	flag.StringVar(&filename, "f", "dkim.priv", "private key filename")
	flag.BoolVar(&readPriv, "y", false, "read private key and print public key")
	flag.Parse()
}

func main() {
	var privKey *rsa.PrivateKey
	if readPriv {
		privKey = readPrivKey()
	} else {
		privKey = genPrivKey()
		writePrivKey(privKey)
	}
	printPubKey(&privKey.PublicKey)
}

func genPrivKey() *rsa.PrivateKey {
	log.Printf("Generating a %v-bit RSA key", nBits)
	privKey, err := rsa.GenerateKey(rand.Reader, nBits)
	if err != nil {
		log.Fatalf("Failed to generate key: %v", err)
	}
	return privKey
}

func readPrivKey() *rsa.PrivateKey {
	b, err := os.ReadFile(filename)
	if err != nil {
		log.Fatalf("Failed to read private key file: %v", err)
	}

	block, _ := pem.Decode(b)
	if block == nil {
		log.Fatalf("Failed to decode PEM block")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		log.Printf("Private key read from %q", filename)
		return key
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		log.Fatalf("Failed to parse private key: %v", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		log.Fatalf("Not an RSA private key")
	}
	log.Printf("Private key read from %q", filename)
	return rsaKey
}

func writePrivKey(privKey *rsa.PrivateKey) {
	privBytes, err := x509.MarshalPKCS8PrivateKey(privKey)
	if err != nil {
		log.Fatalf("Failed to marshal private key: %v", err)
	}

	f, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		log.Fatalf("Failed to create key file: %v", err)
	}
	defer f.Close()

	privBlock := pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: privBytes,
	}
	if err := pem.Encode(f, &privBlock); err != nil {
		log.Fatalf("Failed to write key PEM block: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("Failed to close key file: %v", err)
	}
	log.Printf("Private key written to %q", filename)
}

func printPubKey(pubKey *rsa.PublicKey) {
	// RFC 6376 is inconsistent about whether RSA public keys should be
	// formatted as RSAPublicKey or SubjectPublicKeyInfo. Erratum 3017
	// proposes allowing both; SubjectPublicKeyInfo matches opendkim, Gmail
	// and Fastmail.
	pubBytes, err := x509.MarshalPKIXPublicKey(pubKey)
	if err != nil {
		log.Fatalf("Failed to marshal public key: %v", err)
	}

	params := []string{
		"v=DKIM1",
		"k=rsa",
		"p=" + base64.StdEncoding.EncodeToString(pubBytes),
	}
	log.Println("Public key, to be stored in the TXT record \"<selector>._domainkey\":")
	fmt.Println(strings.Join(params, "; "))
}
