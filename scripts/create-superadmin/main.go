package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/mo-amir99/course-platform-go/internal/features/user"
	"github.com/mo-amir99/course-platform-go/pkg/config"
	"github.com/mo-amir99/course-platform-go/pkg/database"
	"github.com/mo-amir99/course-platform-go/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg.Database, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close(db, appLogger)

	reader := bufio.NewReader(os.Stdin)
	prompt := func(label string) string {
		fmt.Print(label)
		value, _ := reader.ReadString('\n')
		return strings.TrimSpace(value)
	}

	firstName := prompt("First name: ")
	lastName := prompt("Last name: ")
	email := prompt("Email: ")
	password := prompt("Password (min 8 chars): ")

	if email == "" || len(password) < 8 {
		fmt.Println("Error: email and password (min 8 chars) are required")
		os.Exit(1)
	}

	created, err := user.Create(ctx, db, user.CreateInput{
		Email:       email,
		Password:    password,
		FirstName:   firstName,
		LastName:    lastName,
		IsStaff:     true,
		IsSuperuser: true,
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nSuperuser created successfully!")
	fmt.Printf("   ID: %s\n", created.ID)
	fmt.Printf("   Email: %s\n", created.Email)
}
