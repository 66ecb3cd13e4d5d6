package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/term"

	apiclient "github.com/KhushalAcharya29/real-estate-app/pkg/api/client"
)

const defaultAPIBaseURL = "http://localhost:5000"

type cliConfig struct {
	APIBaseURL string            `json:"api_base_url"`
	Session    apiclient.Session `json:"session"`
}

var buildVersion = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "register":
		err = commandRegister(args)
	case "login":
		err = commandLogin(args)
	case "logout":
		err = commandLogout(args)
	case "whoami":
		err = commandWhoami(args)
	case "property":
		err = commandProperty(args)
	case "interest":
		err = commandInterest(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// session opens a client seeded with the saved cookies. The returned save
// function persists any rotation the server performed during the command.
func session(apiOverride string) (*apiclient.Client, func() error, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(apiOverride) != "" {
		cfg.APIBaseURL = apiOverride
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return nil, nil, err
	}
	client.SetSession(cfg.Session)
	save := func() error {
		cfg.Session = client.Session()
		return saveConfig(cfg)
	}
	return client, save, nil
}

func readPassword(given string) (string, error) {
	secret := strings.TrimSpace(given)
	if secret != "" {
		return secret, nil
	}
	fmt.Print("Password: ")
	bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Print("\n")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(bytes), nil
}

func commandRegister(args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "Display name")
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	role := fs.String("role", "client", "Account role (agent|client)")
	apiBase := fs.String("api", "", "API base URL (default "+defaultAPIBaseURL+")")
	fs.Parse(args)

	if strings.TrimSpace(*name) == "" || strings.TrimSpace(*email) == "" {
		return errors.New("--name and --email are required")
	}
	secret, err := readPassword(*password)
	if err != nil {
		return err
	}
	client, save, err := session(*apiBase)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	user, err := client.Register(ctx, apiclient.RegisterInput{Name: *name, Email: *email, Password: secret, Role: *role})
	if err != nil {
		return err
	}
	if err := save(); err != nil {
		return err
	}
	fmt.Printf("registered %s (%s) as %s\n", user.Email, user.ID, user.Role)
	return nil
}

func commandLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	apiBase := fs.String("api", "", "API base URL (default "+defaultAPIBaseURL+")")
	fs.Parse(args)

	if strings.TrimSpace(*email) == "" {
		return errors.New("--email is required")
	}
	secret, err := readPassword(*password)
	if err != nil {
		return err
	}
	client, save, err := session(*apiBase)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	user, err := client.Login(ctx, *email, secret)
	if err != nil {
		return err
	}
	if err := save(); err != nil {
		return err
	}
	fmt.Printf("logged in as %s (%s)\n", user.Email, user.Role)
	return nil
}

func commandLogout(args []string) error {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	fs.Parse(args)

	client, _, err := session("")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := client.Logout(ctx); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Session = apiclient.Session{}
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Println("logged out")
	return nil
}

func commandWhoami(args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ExitOnError)
	fs.Parse(args)

	client, save, err := session("")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	user, err := client.Me(ctx)
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			return errors.New("please login first using 'estate login'")
		}
		return err
	}
	if err := save(); err != nil {
		return err
	}
	if user == nil {
		fmt.Println("account no longer exists")
		return nil
	}
	fmt.Printf("%s\t%s\t%s\t%s\n", user.ID, user.Name, user.Email, user.Role)
	return nil
}

func commandProperty(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: estate property [list|show|mine|create|delete|clients]")
	}
	sub := args[0]
	switch sub {
	case "list":
		return propertyList(args[1:])
	case "show":
		return propertyShow(args[1:])
	case "mine":
		return propertyMine(args[1:])
	case "create":
		return propertyCreate(args[1:])
	case "delete":
		return propertyDelete(args[1:])
	case "clients":
		return propertyClients(args[1:])
	default:
		return fmt.Errorf("unknown property command: %s", sub)
	}
}

type optionalFloat struct{ v *float64 }

func (o *optionalFloat) String() string {
	if o.v == nil {
		return ""
	}
	return fmt.Sprint(*o.v)
}

func (o *optionalFloat) Set(s string) error {
	var f float64
	if _, err := fmt.Sscan(s, &f); err != nil {
		return err
	}
	o.v = &f
	return nil
}

type optionalInt struct{ v *int }

func (o *optionalInt) String() string {
	if o.v == nil {
		return ""
	}
	return fmt.Sprint(*o.v)
}

func (o *optionalInt) Set(s string) error {
	var n int
	if _, err := fmt.Sscan(s, &n); err != nil {
		return err
	}
	o.v = &n
	return nil
}

func propertyList(args []string) error {
	fs := flag.NewFlagSet("property list", flag.ExitOnError)
	city := fs.String("city", "", "City filter (substring, case-insensitive)")
	text := fs.String("q", "", "Full-text search")
	page := fs.Int("page", 1, "Page number")
	limit := fs.Int("limit", 10, "Page size (max 100)")
	var minPrice, maxPrice optionalFloat
	var beds, baths optionalInt
	fs.Var(&minPrice, "min-price", "Minimum price")
	fs.Var(&maxPrice, "max-price", "Maximum price")
	fs.Var(&beds, "beds", "Minimum bedrooms")
	fs.Var(&baths, "baths", "Minimum bathrooms")
	fs.Parse(args)

	client, _, err := session("")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	result, err := client.ListProperties(ctx, apiclient.PropertyQuery{
		City:     *city,
		Text:     *text,
		MinPrice: minPrice.v,
		MaxPrice: maxPrice.v,
		Beds:     beds.v,
		Baths:    baths.v,
		Page:     *page,
		Limit:    *limit,
	})
	if err != nil {
		return err
	}
	for _, p := range result.Data {
		printProperty(p)
	}
	fmt.Printf("page %d, %d total\n", result.Page, result.Total)
	return nil
}

func propertyShow(args []string) error {
	fs := flag.NewFlagSet("property show", flag.ExitOnError)
	id := fs.String("id", "", "Property identifier")
	fs.Parse(args)
	if strings.TrimSpace(*id) == "" {
		return errors.New("--id is required")
	}

	client, _, err := session("")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	p, err := client.GetProperty(ctx, *id)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func propertyMine(args []string) error {
	fs := flag.NewFlagSet("property mine", flag.ExitOnError)
	fs.Parse(args)

	client, save, err := session("")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	items, err := client.MyProperties(ctx)
	if err != nil {
		return err
	}
	for _, p := range items {
		printProperty(p)
	}
	return save()
}

func propertyCreate(args []string) error {
	fs := flag.NewFlagSet("property create", flag.ExitOnError)
	title := fs.String("title", "", "Listing title")
	description := fs.String("description", "", "Listing description")
	price := fs.Float64("price", -1, "Asking price")
	city := fs.String("city", "", "City")
	address := fs.String("address", "", "Street address")
	status := fs.String("status", "", "Status (available|pending|sold)")
	var beds, baths optionalInt
	fs.Var(&beds, "beds", "Bedrooms")
	fs.Var(&baths, "baths", "Bathrooms")
	fs.Parse(args)

	if strings.TrimSpace(*title) == "" || strings.TrimSpace(*city) == "" || *price < 0 {
		return errors.New("--title, --city and a non-negative --price are required")
	}

	client, save, err := session("")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	p, err := client.CreateProperty(ctx, apiclient.PropertyInput{
		Title:       *title,
		Description: *description,
		Price:       *price,
		Location:    apiclient.Location{City: *city, Address: *address},
		Bedrooms:    beds.v,
		Bathrooms:   baths.v,
		Status:      *status,
	})
	if err != nil {
		return err
	}
	fmt.Printf("property created: %s (%s)\n", p.ID, p.Title)
	return save()
}

func propertyDelete(args []string) error {
	fs := flag.NewFlagSet("property delete", flag.ExitOnError)
	id := fs.String("id", "", "Property identifier")
	fs.Parse(args)
	if strings.TrimSpace(*id) == "" {
		return errors.New("--id is required")
	}

	client, save, err := session("")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := client.DeleteProperty(ctx, *id); err != nil {
		return err
	}
	fmt.Println("property deleted")
	return save()
}

func propertyClients(args []string) error {
	fs := flag.NewFlagSet("property clients", flag.ExitOnError)
	id := fs.String("id", "", "Property identifier")
	fs.Parse(args)
	if strings.TrimSpace(*id) == "" {
		return errors.New("--id is required")
	}

	client, save, err := session("")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	items, err := client.InterestedClients(ctx, *id)
	if err != nil {
		return err
	}
	for _, it := range items {
		fmt.Printf("%s\t%s\t%s\t%s\n", it.Client.Name, it.Client.Email, it.CreatedAt.Format(time.RFC3339), it.Message)
	}
	return save()
}

func commandInterest(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: estate interest [add|list|remove]")
	}
	sub := args[0]
	switch sub {
	case "add":
		return interestAdd(args[1:])
	case "list":
		return interestList(args[1:])
	case "remove":
		return interestRemove(args[1:])
	default:
		return fmt.Errorf("unknown interest command: %s", sub)
	}
}

func interestAdd(args []string) error {
	fs := flag.NewFlagSet("interest add", flag.ExitOnError)
	id := fs.String("property", "", "Property identifier")
	message := fs.String("message", "", "Optional note to the agent")
	fs.Parse(args)
	if strings.TrimSpace(*id) == "" {
		return errors.New("--property is required")
	}

	client, save, err := session("")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	it, err := client.ExpressInterest(ctx, *id, *message)
	if err != nil {
		return err
	}
	fmt.Printf("interest recorded: %s\n", it.ID)
	return save()
}

func interestList(args []string) error {
	fs := flag.NewFlagSet("interest list", flag.ExitOnError)
	fs.Parse(args)

	client, save, err := session("")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	items, err := client.MyInterests(ctx)
	if err != nil {
		return err
	}
	for _, it := range items {
		fmt.Printf("%s\t%s\t%s\t%s\n", it.Property.ID, it.Property.Title, it.Property.Location.City, it.CreatedAt.Format(time.RFC3339))
	}
	return save()
}

func interestRemove(args []string) error {
	fs := flag.NewFlagSet("interest remove", flag.ExitOnError)
	id := fs.String("property", "", "Property identifier")
	fs.Parse(args)
	if strings.TrimSpace(*id) == "" {
		return errors.New("--property is required")
	}

	client, save, err := session("")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := client.RemoveInterest(ctx, *id); err != nil {
		return err
	}
	fmt.Println("interest removed")
	return save()
}

func printProperty(p apiclient.Property) {
	fmt.Printf("%s\t%s\t%.2f\t%s\t%s\n", p.ID, p.Title, p.Price, p.Location.City, p.Status)
}

func loadConfig() (cliConfig, error) {
	path, err := configPath()
	if err != nil {
		return cliConfig{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cliConfig{APIBaseURL: defaultAPIBaseURL}, nil
		}
		return cliConfig{}, err
	}
	var cfg cliConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}, err
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	return cfg, nil
}

func saveConfig(cfg cliConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func configPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "estate", "config.json"), nil
}

func printUsage() {
	fmt.Printf("estate CLI %s\n\n", buildVersion)
	fmt.Print(`Usage:
	estate register --name <name> --email user@example.com [--role agent|client] [--password secret] [--api ` + defaultAPIBaseURL + `]
	estate login --email user@example.com [--password secret] [--api ` + defaultAPIBaseURL + `]
	estate logout
	estate whoami
	estate property list [--city c] [--q text] [--min-price N] [--max-price N] [--beds N] [--baths N] [--page N] [--limit N]
	estate property show --id <property-id>
	estate property mine
	estate property create --title <t> --city <c> --price <n> [--address a] [--beds N] [--baths N] [--status s]
	estate property delete --id <property-id>
	estate property clients --id <property-id>
	estate interest add --property <property-id> [--message text]
	estate interest list
	estate interest remove --property <property-id>
	estate version
`)
}

func printVersion() {
	fmt.Println(strings.TrimSpace(buildVersion))
}
