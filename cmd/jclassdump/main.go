// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	classparser "github.com/saferwall/jclass"
	"github.com/saferwall/jclass/ir"
	"github.com/spf13/cobra"
)

var (
	wantHeader  bool
	wantFields  bool
	wantMethods bool
	wantIR      bool
	wantPaths   bool
)

func prettyPrint(buff []byte) string {
	var prettyJSON bytes.Buffer
	err := json.Indent(&prettyJSON, buff, "", "\t")
	if err != nil {
		log.Println("JSON parse error: ", err)
		return string(buff)
	}
	return prettyJSON.String()
}

func isDirectory(path string) bool {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return false
	}
	return fileInfo.IsDir()
}

func dumpClass(filename string, cmd *cobra.Command) {
	jc, err := classparser.New(filename, &classparser.Options{})
	if err != nil {
		log.Printf("Error while opening file: %s, reason: %v", filename, err)
		return
	}
	defer jc.Close()

	if err := jc.Parse(); err != nil {
		log.Printf("Error while parsing file: %s, reason: %v", filename, err)
		return
	}
	class := jc.Class

	if wantHeader {
		fmt.Printf("%s (version %s, flags %#04x)\n",
			class.ThisClass, class.Version, uint16(class.Flags))
		if class.SuperClass != nil {
			fmt.Printf("  extends %s\n", class.SuperClass)
		}
		for _, itf := range class.Interfaces {
			fmt.Printf("  implements %s\n", itf)
		}
	}

	if wantFields {
		fields, _ := json.Marshal(class.Fields)
		fmt.Println(prettyPrint(fields))
	}

	if wantMethods {
		methods, _ := json.Marshal(class.Methods)
		fmt.Println(prettyPrint(methods))
	}

	if wantIR || wantPaths {
		for i := range class.Methods {
			method := &class.Methods[i]
			if method.Body == nil {
				continue
			}
			lifted, err := ir.LiftMethod(method)
			if err != nil {
				log.Printf("Error while lifting %s::%s, reason: %v",
					class.ThisClass, method.Name, err)
				continue
			}
			fmt.Printf("%s::%s%s\n", class.ThisClass, method.Name,
				method.Descriptor.Descriptor())
			fmt.Print(lifted.String())
			if wantPaths {
				conds, err := ir.AnalyzePathConditions(lifted, nil)
				if err != nil {
					log.Printf("Error while analyzing %s::%s, reason: %v",
						class.ThisClass, method.Name, err)
					continue
				}
				for _, pc := range lifted.PCs() {
					if cond, ok := conds[pc]; ok {
						fmt.Printf("%s  reachable when %s\n", pc, cond)
					}
				}
			}
			fmt.Println()
		}
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "jclassdump <class file or directory>...",
		Short: "Dump the contents of Java class files",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			for _, arg := range args {
				if isDirectory(arg) {
					entries, err := os.ReadDir(arg)
					if err != nil {
						log.Printf("Error while reading dir: %s, reason: %v", arg, err)
						continue
					}
					for _, entry := range entries {
						if entry.IsDir() ||
							filepath.Ext(entry.Name()) != ".class" {
							continue
						}
						dumpClass(filepath.Join(arg, entry.Name()), cmd)
					}
				} else {
					dumpClass(arg, cmd)
				}
			}
		},
	}
	rootCmd.Flags().BoolVarP(&wantHeader, "header", "", true, "Dump the class header")
	rootCmd.Flags().BoolVarP(&wantFields, "fields", "f", false, "Dump fields as JSON")
	rootCmd.Flags().BoolVarP(&wantMethods, "methods", "m", false, "Dump methods as JSON")
	rootCmd.Flags().BoolVarP(&wantIR, "ir", "i", false, "Dump the lifted IR of each method")
	rootCmd.Flags().BoolVarP(&wantPaths, "paths", "c", false, "Dump per-instruction path conditions")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
