// Command mailfn runs the email dispatcher as a standalone endpoint:
// POST /send-email with {to, subject, html, text?} or {test: true}.
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/docreplace-portal/internal/handler"
	"github.com/iliyamo/docreplace-portal/internal/mailer"
	"github.com/iliyamo/docreplace-portal/internal/router"
)

func main() {
	_ = godotenv.Load()
	port := os.Getenv("MAILFN_PORT")
	if port == "" {
		port = "8081"
	}

	h := &handler.EmailHandler{Mailer: mailer.New(mailer.SMTPTransport{})}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = router.ErrorHandler
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.POST("/send-email", h.Send)

	log.Printf("mailfn listening on :%s", port)
	if err := e.Start(":" + port); err != nil {
		log.Fatal(err)
	}
}
