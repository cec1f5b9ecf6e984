package cbgen

import (
	"io/ioutil"
	"log"
	"os"
)

var logger = log.New(ioutil.Discard, "", log.Lshortfile)

// SetDebugMode enables debug logging of the code generator to stderr.
func SetDebugMode(dbg bool) {
	w := ioutil.Discard
	if dbg {
		w = os.Stderr
	}
	logger = log.New(w, "cbgen: ", log.Lshortfile)
}
