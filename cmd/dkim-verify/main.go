package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dkimproto/dkim"
)

func main() {
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatal(err)
	}

	var lastReason string
	logger := dkim.Logger(func(format string, args ...interface{}) {
		lastReason = fmt.Sprintf(format, args...)
	})

	ok := dkim.Verify(raw, dkim.VerifyOptions{Logger: logger})
	if ok {
		log.Print("Valid signature")
		return
	}
	if lastReason != "" {
		log.Fatal(lastReason)
	}
	log.Fatal("Invalid signature")
}
