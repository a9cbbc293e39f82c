// Command aqctl runs the cleaning pipeline over local PRSA CSV files and
// prints summaries, monthly trends and regression evaluations as JSON.
//
// Usage:
//
//	aqctl stations --data ./data
//	aqctl summary --station Shunyi --from 2014 --to 2016
//	aqctl trend --station Shunyi
//	aqctl regress --station Shunyi --features TEMP,DEWP,PRES,WSPM --seed 7
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
