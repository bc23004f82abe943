package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/RunTheBot/echo-HiFi-extension/config"
	"github.com/RunTheBot/echo-HiFi-extension/extension"
	"github.com/RunTheBot/echo-HiFi-extension/hifi"
	"github.com/RunTheBot/echo-HiFi-extension/history"
	"github.com/RunTheBot/echo-HiFi-extension/sentry"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}
	log.SetFormatter(&nested.Formatter{
		HideKeys:    true,
		FieldsOrder: []string{"module", "function"},
	})
	sentry.Init()

	if err := run(config.New()); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *config.Config) error {
	store, err := history.New(cfg.Options.HistoryDBPath)
	if err != nil {
		log.Warnf("search history disabled: %v", err)
		store = nil
	}

	ext, err := extension.New(cfg, hifi.NewHTTPTransport(15*time.Second), store)
	if err != nil {
		return err
	}

	router := gin.Default()
	router.Use(sentry.GetSentryGin())

	router.GET("/search", func(c *gin.Context) {
		shelves, err := ext.LoadSearchFeed(c.Request.Context(), c.Query("query"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"shelves": shelves})
	})

	router.GET("/search/suggestions", func(c *gin.Context) {
		queries, err := ext.QuickSearch(c.Query("query"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"queries": queries})
	})

	router.DELETE("/search/suggestions", func(c *gin.Context) {
		if err := ext.DeleteQuickSearch(c.Query("query")); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	router.GET("/track/:id", func(c *gin.Context) {
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		item, err := ext.LoadTrack(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	})

	router.GET("/track/:id/stream", func(c *gin.Context) {
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		quality := hifi.Quality(c.DefaultQuery("quality", string(hifi.QualityLossless)))
		media, err := ext.LoadStreamableMedia(c.Request.Context(), id, quality)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, media)
	})

	router.GET("/album/:id", func(c *gin.Context) {
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		item, err := ext.LoadAlbum(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	})

	router.GET("/album/:id/tracks", func(c *gin.Context) {
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		tracks, err := ext.LoadAlbumTracks(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tracks": tracks})
	})

	router.GET("/artist/:id", func(c *gin.Context) {
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		item, err := ext.LoadArtist(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	})

	router.GET("/artist/:id/feed", func(c *gin.Context) {
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		shelves, err := ext.LoadArtistFeed(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"shelves": shelves})
	})

	router.GET("/playlist/:id", func(c *gin.Context) {
		item, err := ext.LoadPlaylist(c.Request.Context(), c.Param("id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	})

	router.GET("/playlist/:id/tracks", func(c *gin.Context) {
		tracks, err := ext.LoadPlaylistTracks(c.Request.Context(), c.Param("id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tracks": tracks})
	})

	port := cfg.Options.Port
	if port == "" {
		port = "8080"
	}
	log.Printf("Starting server on :%s", port)
	return router.Run(":" + port)
}

func intParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	var upstream *hifi.UpstreamError
	var notFound *hifi.ArtistNotFoundError
	switch {
	case errors.Is(err, hifi.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &upstream):
		if upstream.Status >= 400 && upstream.Status < 500 {
			status = upstream.Status
		} else {
			status = http.StatusBadGateway
		}
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
