package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"workshop-backend/config"
	"workshop-backend/internal/auth"
	"workshop-backend/internal/database"
	"workshop-backend/internal/models"
	"workshop-backend/internal/repository"
)

var (
	// Command flags
	createUser    = flag.Bool("create", false, "Create a new user")
	deleteUser    = flag.Bool("delete", false, "Delete a user")
	makeTrainer   = flag.Bool("make-trainer", false, "Allow user to create and host workshops")
	removeTrainer = flag.Bool("remove-trainer", false, "Revoke trainer role")
	printToken    = flag.Bool("token", false, "Print a bearer token for a user")

	// User data flags
	email      = flag.String("email", "", "User's email")
	password   = flag.String("password", "", "User's password")
	name       = flag.String("name", "", "User's name")
	asTrainer  = flag.Bool("trainer", false, "Create the user as a trainer")
	configPath = flag.String("config", "config.yaml", "Path to the configuration file")
)

func main() {
	flag.Parse()

	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	authService := auth.NewAuthService(userRepo, &cfg.Auth)

	switch {
	case *createUser:
		return handleCreateUser(ctx, authService)
	case *deleteUser:
		return handleDeleteUser(ctx, userRepo)
	case *makeTrainer:
		return handleSetRole(ctx, authService, models.RoleTrainer)
	case *removeTrainer:
		return handleSetRole(ctx, authService, models.RoleUser)
	case *printToken:
		return handlePrintToken(ctx, authService, userRepo)
	default:
		printUsage()
		return nil
	}
}

func handleCreateUser(ctx context.Context, authService *auth.AuthService) error {
	if *email == "" || *password == "" || *name == "" {
		return fmt.Errorf("email, password, and name are required")
	}

	role := models.RoleUser
	if *asTrainer {
		role = models.RoleTrainer
	}

	user, err := authService.Register(ctx, *email, *password, *name, role)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Printf("Successfully created %s: %s (%s)\n", user.Role, user.Email, user.ID)
	return nil
}

func handleDeleteUser(ctx context.Context, userRepo *repository.UserRepository) error {
	if *email == "" {
		return fmt.Errorf("email is required")
	}

	user, err := userRepo.GetUserByEmail(ctx, *email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user not found")
	}

	if err := userRepo.DeleteUser(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	fmt.Printf("Successfully deleted user: %s\n", user.Email)
	return nil
}

func handleSetRole(ctx context.Context, authService *auth.AuthService, role models.UserRole) error {
	if *email == "" {
		return fmt.Errorf("email is required")
	}

	user, err := authService.SetRole(ctx, *email, role)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	fmt.Printf("User %s now has role %s\n", user.Email, user.Role)
	return nil
}

func handlePrintToken(ctx context.Context, authService *auth.AuthService, userRepo *repository.UserRepository) error {
	if *email == "" {
		return fmt.Errorf("email is required")
	}

	user, err := userRepo.GetUserByEmail(ctx, *email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user not found")
	}

	resp, err := authService.IssueToken(user)
	if err != nil {
		return err
	}

	fmt.Println(resp.AccessToken)
	return nil
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  Create user:     cli -create -email=user@example.com -password=secret -name=\"John Doe\" [-trainer]")
	fmt.Println("  Delete user:     cli -delete -email=user@example.com")
	fmt.Println("  Make trainer:    cli -make-trainer -email=user@example.com")
	fmt.Println("  Remove trainer:  cli -remove-trainer -email=user@example.com")
	fmt.Println("  Print token:     cli -token -email=user@example.com")
}
