// @title gin-blog API
// @version 1.0
// @description JSON API of the gin-blog community blog: posts, follow feed and relations.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
