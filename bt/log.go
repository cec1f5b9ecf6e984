package bt

import (
	"io/ioutil"
	"log"
	"os"
)

var logger = log.New(ioutil.Discard, "", log.Lshortfile)

// SetDebugMode enables debug logging of the parser and tree construction to
// stderr.
func SetDebugMode(dbg bool) {
	w := ioutil.Discard
	if dbg {
		w = os.Stderr
	}
	logger = log.New(w, "bt: ", log.Lshortfile)
}
