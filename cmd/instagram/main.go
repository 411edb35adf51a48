package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

const envAccessToken = "INSTAGRAM_ACCESS_TOKEN"

var (
	token   string
	limit   int
	after   string
	mediaID string
	fields  string
	apiURL  string
	timeout time.Duration
)

func init() {
	flag.Usage = helpMessage
	flag.StringVar(&token, "token", os.Getenv(envAccessToken), "Instagram access token")
	flag.IntVar(&limit, "limit", 0, "Number of media items per page")
	flag.StringVar(&after, "after", "", "Cursor of the media page to show")
	flag.StringVar(&mediaID, "media", "", "Show a single media item instead of a media page")
	flag.StringVar(&fields, "fields", "", "Comma separated list of media fields")
	flag.StringVar(&apiURL, "api", "", "Override the Instagram Graph API url")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Timeout for API requests") //nolint:mnd
}

func helpMessage() {
	output := flag.CommandLine.Output()
	fmt.Fprintf(output, "Usage of %s:\n\n", os.Args[0])
	fmt.Fprintf(
		output,
		"This tool shows the Instagram profile and media of the user that the access token (-token or %s) belongs to.\n",
		envAccessToken,
	)
	fmt.Fprintln(output, "Flags:")
	flag.PrintDefaults()
}

func main() {
	flag.Parse()
	if len(token) == 0 {
		flag.Usage()
		os.Exit(2) //nolint:mnd
	}

	var mediaFields []string
	if len(fields) > 0 {
		mediaFields = strings.Split(fields, ",")
	}

	err := run(context.Background(), os.Stdout, options{
		token:   token,
		limit:   limit,
		after:   after,
		mediaID: mediaID,
		fields:  mediaFields,
		apiURL:  apiURL,
		timeout: timeout,
	})
	if err != nil {
		log.Fatal(StyleError.Render(err.Error()))
	}
}
