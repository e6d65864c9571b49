// Command vericred runs the credential verification API server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	gcs "cloud.google.com/go/storage"
	gcvision "cloud.google.com/go/vision/apiv1"
	firebase "firebase.google.com/go"
	"github.com/google/generative-ai-go/genai"
	"github.com/ridge/must/v2"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"

	"github.com/CodeEzard/vericred/internal/auth"
	"github.com/CodeEzard/vericred/internal/credentials"
	"github.com/CodeEzard/vericred/internal/db"
	"github.com/CodeEzard/vericred/internal/docai"
	"github.com/CodeEzard/vericred/internal/llm"
	"github.com/CodeEzard/vericred/internal/parse"
	"github.com/CodeEzard/vericred/internal/server"
	"github.com/CodeEzard/vericred/internal/storage"
	"github.com/CodeEzard/vericred/pkg/env"
)

func main() {
	env.Load()

	ctx := context.Background()

	gdb := must.OK1(db.Connect(env.RequiredStringVariable("DATABASE_URL")))
	must.OK(db.Migrate(gdb))

	opts := googleClientOptions()

	visionClient := must.OK1(gcvision.NewImageAnnotatorClient(ctx, opts...))
	defer visionClient.Close()

	var docaiClient docai.Client
	var docaiSpec docai.Spec
	if processorID := env.StringVariable("DOCUMENTAI_PROCESSOR_ID", ""); processorID != "" {
		docaiOpts := append([]option.ClientOption{option.WithEndpoint(env.RequiredStringVariable("DOCUMENTAI_ENDPOINT"))}, opts...)
		client := must.OK1(documentai.NewDocumentProcessorClient(ctx, docaiOpts...))
		defer client.Close()
		docaiClient = client
		docaiSpec = docai.Spec{
			ProjectID:   env.RequiredStringVariable("GCP_PROJECT_ID"),
			Location:    env.RequiredStringVariable("DOCUMENTAI_LOCATION"),
			ProcessorID: processorID,
		}
	}

	parser := parse.New(newLLMClient(ctx, opts), time.Second/2)

	var store storage.Client
	archiveBucket := env.StringVariable("GCP_ARCHIVE_BUCKET", "")
	if archiveBucket != "" {
		store = storage.New(must.OK1(gcs.NewClient(ctx, opts...)))
	}

	app := must.OK1(firebase.NewApp(ctx, &firebase.Config{ProjectID: env.RequiredStringVariable("GCP_PROJECT_ID")}, opts...))
	firebaseAuth := must.OK1(app.Auth(ctx))
	authClient := auth.New(firebaseAuth, splitList(env.StringVariable("ALLOWED_EMAIL_DOMAINS", "")))

	srv := server.New(server.Config{
		DB:              gdb,
		Vision:          visionClient,
		Docai:           docaiClient,
		Parser:          parser,
		Auth:            authClient,
		Store:           store,
		DocaiSpec:       docaiSpec,
		ArchiveBucket:   archiveBucket,
		ShareSecret:     []byte(env.RequiredStringVariable("SHARE_TOKEN_SECRET")),
		FrontendBaseURL: env.StringVariable("FRONTEND_BASE_URL", "http://localhost:3000"),
		AllowedOrigins:  splitList(env.StringVariable("ALLOWED_ORIGINS", "")),
	})

	port := env.IntVariable("PORT", 8080)
	log.Printf("vericred API listening on port %d", port)
	must.OK(http.ListenAndServe(fmt.Sprintf(":%d", port), srv.Routes()))
}

// newLLMClient builds the field extraction backend. Gemini is the default;
// PARSER_PROVIDER=openai switches to OpenAI.
func newLLMClient(ctx context.Context, opts []option.ClientOption) llm.Client {
	switch provider := env.StringVariable("PARSER_PROVIDER", "gemini"); provider {
	case "openai":
		key := apiKey(ctx, opts, "OPENAI_API_KEY", "OPENAI_KEY_SECRET_NAME")
		return llm.NewOpenAI(openai.NewClient(key), env.StringVariable("OPENAI_MODEL", ""))
	case "gemini":
		key := apiKey(ctx, opts, "GEMINI_API_KEY", "GEMINI_API_KEY_SECRET_NAME")
		return llm.NewGenai(must.OK1(genai.NewClient(ctx, option.WithAPIKey(key))), env.StringVariable("GEMINI_MODEL", llm.GenaiModelFlash))
	default:
		panic(fmt.Sprintf("unknown PARSER_PROVIDER %q", provider))
	}
}

// apiKey reads a provider key from the environment, falling back to GCP
// Secret Manager for deployments that do not inject keys directly.
func apiKey(ctx context.Context, opts []option.ClientOption, envName, secretEnvName string) string {
	if key := os.Getenv(envName); key != "" {
		return key
	}

	client := must.OK1(secretmanager.NewClient(ctx, opts...))
	defer client.Close()
	return secretFromGCP(ctx, client, env.RequiredStringVariable(secretEnvName))
}

func secretFromGCP(ctx context.Context, client *secretmanager.Client, secretName string) string {
	secretValue := must.OK1(client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
			env.RequiredStringVariable("GCP_PROJECT_ID"),
			secretName,
		),
	}))
	return string(secretValue.Payload.Data)
}

// googleClientOptions injects the vision-api.json key next to the binary
// when present; otherwise clients fall back to application default
// credentials.
func googleClientOptions() []option.ClientOption {
	path, err := credentials.Path()
	if err != nil {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(path)}
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
