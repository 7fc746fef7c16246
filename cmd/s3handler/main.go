package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/asafalina/s3-handler/cmd"
	"github.com/asafalina/s3-handler/pkg/storage"
	"github.com/caarlos0/env/v11"
	"github.com/schollz/progressbar/v3"
)

type Config struct {
	S3EndpointURL     string `env:"S3_ENDPOINT_URL" envDefault:""`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" envDefault:""`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" envDefault:""`
	S3Region          string `env:"AWS_REGION" envDefault:""`
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: s3handler [-env file] <command> [arguments]

Commands:
  buckets                                            list buckets
  ls <bucket> [prefix]                               list keys under a prefix
  dirs <bucket> [prefix]                             list directories under a prefix, depth-first
  cat <bucket> <key>                                 print an object to stdout
  put <bucket> <key> [file]                          write a file, or stdin, to an object
  get <bucket> <key> <file>                          download an object to a file
  up <file> <bucket> <key>                           upload a file to an object
  cp <src-bucket> <src-key> <dst-bucket> <dst-key>   copy an object
  rm [-r] <bucket> <key-or-prefix>                   delete an object, or all objects under a prefix
  size <bucket> <key>                                print an object's size in bytes
`)
	os.Exit(2)
}

func main() {
	cmd.LoadEnvFile()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
	}

	handler, err := storage.NewS3Handler(storage.S3ClientConfig{
		Endpoint:        cfg.S3EndpointURL,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		log.Fatalf("Failed to create S3 handler: %v", err)
	}

	ctx := context.Background()

	switch args[0] {
	case "buckets":
		runBuckets(ctx, handler, args[1:])
	case "ls":
		runLs(ctx, handler, args[1:])
	case "dirs":
		runDirs(ctx, handler, args[1:])
	case "cat":
		runCat(ctx, handler, args[1:])
	case "put":
		runPut(ctx, handler, args[1:])
	case "get":
		runGet(ctx, handler, args[1:])
	case "up":
		runUp(ctx, handler, args[1:])
	case "cp":
		runCp(ctx, handler, args[1:])
	case "rm":
		runRm(ctx, handler, args[1:])
	case "size":
		runSize(ctx, handler, args[1:])
	default:
		log.Printf("unknown command: %s", args[0])
		usage()
	}
}

func runBuckets(ctx context.Context, handler *storage.S3Handler, args []string) {
	if len(args) != 0 {
		usage()
	}

	buckets, err := handler.ListBuckets(ctx)
	if err != nil {
		log.Fatalf("Failed to list buckets: %v", err)
	}
	for _, bucket := range buckets {
		fmt.Println(bucket)
	}
}

func runLs(ctx context.Context, handler *storage.S3Handler, args []string) {
	if len(args) < 1 || len(args) > 2 {
		usage()
	}

	prefix := ""
	if len(args) == 2 {
		prefix = args[1]
	}

	for key, err := range handler.IterKeys(ctx, args[0], prefix) {
		if err != nil {
			log.Fatalf("Failed to list keys: %v", err)
		}
		fmt.Println(key)
	}
}

func runDirs(ctx context.Context, handler *storage.S3Handler, args []string) {
	if len(args) < 1 || len(args) > 2 {
		usage()
	}

	prefix := ""
	if len(args) == 2 {
		prefix = args[1]
	}

	for dir, err := range handler.IterDirs(ctx, args[0], prefix) {
		if err != nil {
			log.Fatalf("Failed to list directories: %v", err)
		}
		fmt.Println(dir)
	}
}

func runCat(ctx context.Context, handler *storage.S3Handler, args []string) {
	if len(args) != 2 {
		usage()
	}

	obj, err := handler.OpenObject(ctx, args[0], args[1])
	if err != nil {
		log.Fatalf("Failed to read object: %v", err)
	}
	defer obj.Close()

	if _, err := io.Copy(os.Stdout, obj); err != nil {
		log.Fatalf("Failed to read object: %v", err)
	}
}

func runPut(ctx context.Context, handler *storage.S3Handler, args []string) {
	if len(args) < 2 || len(args) > 3 {
		usage()
	}

	var data io.Reader = os.Stdin
	if len(args) == 3 {
		file, err := os.Open(args[2])
		if err != nil {
			log.Fatalf("Failed to open file: %v", err)
		}
		defer file.Close()
		data = file
	}

	if err := handler.PutObject(ctx, args[0], args[1], data); err != nil {
		log.Fatalf("Failed to write object: %v", err)
	}
}

func runGet(ctx context.Context, handler *storage.S3Handler, args []string) {
	if len(args) != 3 {
		usage()
	}
	bucket, key, localPath := args[0], args[1], args[2]

	size, err := handler.ObjectSize(ctx, bucket, key)
	if err != nil {
		log.Fatalf("Failed to get object size: %v", err)
	}

	obj, err := handler.OpenObject(ctx, bucket, key)
	if err != nil {
		log.Fatalf("Failed to read object: %v", err)
	}
	defer obj.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), os.ModePerm); err != nil {
		log.Fatalf("Failed to create directory for %s: %v", localPath, err)
	}
	file, err := os.Create(localPath)
	if err != nil {
		log.Fatalf("Failed to create file %s: %v", localPath, err)
	}
	defer file.Close()

	bar := newTransferBar(size, "downloading")
	if _, err := io.Copy(io.MultiWriter(file, bar), obj); err != nil {
		log.Fatalf("Failed to download object: %v", err)
	}
}

func runUp(ctx context.Context, handler *storage.S3Handler, args []string) {
	if len(args) != 3 {
		usage()
	}
	localPath, bucket, key := args[0], args[1], args[2]

	file, err := os.Open(localPath)
	if err != nil {
		log.Fatalf("Failed to open file %s: %v", localPath, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		log.Fatalf("Failed to stat file %s: %v", localPath, err)
	}

	bar := newTransferBar(info.Size(), "uploading")
	if err := handler.PutObject(ctx, bucket, key, io.TeeReader(file, bar)); err != nil {
		log.Fatalf("Failed to upload file: %v", err)
	}
}

func runCp(ctx context.Context, handler *storage.S3Handler, args []string) {
	if len(args) != 4 {
		usage()
	}

	if err := handler.CopyObject(ctx, args[0], args[1], args[2], args[3]); err != nil {
		log.Fatalf("Failed to copy object: %v", err)
	}
}

func runRm(ctx context.Context, handler *storage.S3Handler, args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	recursive := fs.Bool("r", false, "delete all objects under the prefix")
	if err := fs.Parse(args); err != nil {
		usage()
	}
	if fs.NArg() != 2 {
		usage()
	}

	if *recursive {
		if err := handler.DeleteObjects(ctx, fs.Arg(0), fs.Arg(1)); err != nil {
			log.Fatalf("Failed to delete objects: %v", err)
		}
		return
	}

	if err := handler.DeleteObject(ctx, fs.Arg(0), fs.Arg(1)); err != nil {
		log.Fatalf("Failed to delete object: %v", err)
	}
}

func runSize(ctx context.Context, handler *storage.S3Handler, args []string) {
	if len(args) != 2 {
		usage()
	}

	size, err := handler.ObjectSize(ctx, args[0], args[1])
	if err != nil {
		log.Fatalf("Failed to get object size: %v", err)
	}
	fmt.Println(size)
}

func newTransferBar(size int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(size,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
}
