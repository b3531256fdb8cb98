// prismctl validates, inspects and watches prism logger configuration files.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
