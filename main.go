package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"

	"scribble/database"
	"scribble/handlers"
	"scribble/identity"
	"scribble/push"
	"scribble/routes"
	"scribble/services"
	"scribble/store"
	"scribble/token"
	"scribble/uploads"
)

func main() {
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	mongoURI := os.Getenv("MONGODB_URI")
	if jwtSecret == "" || mongoURI == "" {
		log.Fatal("JWT_SECRET and MONGODB_URI must be set")
	}

	// Connect to MongoDB with retry.
	var client *mongo.Client
	var dbErr error
	for i := 1; i <= 3; i++ {
		client, dbErr = database.Connect(mongoURI)
		if dbErr == nil {
			break
		}
		log.Printf("MongoDB connection attempt %d failed: %v", i, dbErr)
		time.Sleep(2 * time.Second)
	}
	if dbErr != nil {
		log.Fatal("failed to connect to MongoDB: ", dbErr)
	}
	defer func() {
		if err := database.Disconnect(client); err != nil {
			log.Printf("disconnect: %v", err)
		}
	}()

	st := store.NewMongo(client.Database(database.Name))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := st.EnsureIndexes(ctx); err != nil {
		cancel()
		log.Fatal("create indexes: ", err)
	}
	cancel()

	// Object store for images; posts without images work without it.
	var uploader uploads.Uploader
	if url := os.Getenv("CLOUDINARY_URL"); url != "" {
		cld, err := uploads.NewCloudinary(url)
		if err != nil {
			log.Fatal("cloudinary: ", err)
		}
		uploader = cld
	} else {
		log.Println("CLOUDINARY_URL not set; image uploads disabled")
	}

	// Google sign-in.
	var verifier identity.Verifier
	var oauthFlow *identity.OAuthFlow
	if clientID := os.Getenv("GOOGLE_CLIENT_ID"); clientID != "" {
		vctx, vcancel := context.WithTimeout(context.Background(), 10*time.Second)
		g, err := identity.NewGoogle(vctx, clientID)
		vcancel()
		if err != nil {
			log.Printf("google verifier unavailable: %v", err)
		} else {
			verifier = g
		}
		if secret := os.Getenv("GOOGLE_CLIENT_SECRET"); secret != "" {
			redirect := os.Getenv("GOOGLE_REDIRECT_URL")
			if redirect == "" {
				redirect = "http://localhost:8080/auth/google/callback"
			}
			oauthFlow = identity.NewOAuthFlow(clientID, secret, redirect)
		}
	} else {
		log.Println("GOOGLE_CLIENT_ID not set; Google sign-in disabled")
	}

	pusher, err := push.NewFromEnv()
	if err != nil {
		log.Fatal("web push: ", err)
	}

	tokens := token.NewJWT(jwtSecret, 24*time.Hour)

	api := &handlers.API{
		Auth:          services.NewAuthService(st, st, tokens, verifier, uploader),
		Posts:         services.NewPostService(st, st, st, uploader, pusher),
		Users:         services.NewUserService(st, uploader),
		OAuth:         oauthFlow,
		Subs:          st,
		PushPublicKey: pusher.PublicKey(),
	}

	router := routes.SetupRouter(api, tokens)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("server listening on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("forced shutdown: ", err)
	}
}
